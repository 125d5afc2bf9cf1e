package services

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"vocab-ai/internal/metrics"
)

type DocumentKind string

const (
	KindPDF  DocumentKind = "pdf"
	KindDOCX DocumentKind = "docx"
)

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

var (
	// ErrUnsupportedFormat is returned for uploads that are neither PDF nor DOCX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrInsufficientText means the document yielded too little text to work with,
	// usually a scanned image without a text layer.
	ErrInsufficientText = errors.New("not enough readable text in document")
)

// ExtractionError reports a document that could not be parsed.
type ExtractionError struct {
	Kind   DocumentKind
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.Kind, e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// KindFromFilename maps an upload name to the extraction path by suffix.
func KindFromFilename(name string) (DocumentKind, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return KindPDF, nil
	case ".docx":
		return KindDOCX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// Extractor turns uploaded PDF and Word documents into plain text.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of data. It never panics on malformed input.
func (x *Extractor) Extract(data []byte, kind DocumentKind) (text string, err error) {
	if kind != KindPDF && kind != KindDOCX {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, kind)
	}
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = &ExtractionError{Kind: kind, Reason: "parser panic", Err: fmt.Errorf("%v", r)}
		}
		result := "ok"
		if err != nil {
			result = "error"
			log.Warn().Err(err).Str("kind", string(kind)).Msg("document extraction failed")
		}
		metrics.ObserveExtraction(string(kind), result)
	}()

	if len(data) == 0 {
		return "", nil
	}
	if err := sniff(data, kind); err != nil {
		return "", err
	}

	switch kind {
	case KindPDF:
		return extractPDF(data)
	default:
		return extractDOCX(data)
	}
}

// CheckUsable reports ErrInsufficientText when text is shorter than min runes.
func CheckUsable(text string, min int) error {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < min {
		return ErrInsufficientText
	}
	return nil
}

func sniff(data []byte, kind DocumentKind) error {
	mtype := mimetype.Detect(data)
	switch kind {
	case KindPDF:
		if !mtype.Is("application/pdf") {
			return &ExtractionError{Kind: kind, Reason: "content is " + mtype.String() + ", not a PDF"}
		}
	case KindDOCX:
		for m := mtype; m != nil; m = m.Parent() {
			if m.Is("application/zip") {
				return nil
			}
		}
		return &ExtractionError{Kind: kind, Reason: "content is " + mtype.String() + ", not a zip container"}
	}
	return nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Kind: KindPDF, Reason: "open pdf", Err: err}
	}

	var out strings.Builder
	pages := r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Pages without a text layer contribute nothing.
			log.Debug().Err(err).Int("page", i).Msg("pdf page has no extractable text")
			continue
		}
		out.WriteString(text)
	}
	return out.String(), nil
}

func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &ExtractionError{Kind: KindDOCX, Reason: "open zip container", Err: err}
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			body = f
			break
		}
	}
	if body == nil {
		return "", &ExtractionError{Kind: KindDOCX, Reason: "word/document.xml not found"}
	}

	rc, err := body.Open()
	if err != nil {
		return "", &ExtractionError{Kind: KindDOCX, Reason: "open word/document.xml", Err: err}
	}
	defer rc.Close()

	paragraphs, err := readParagraphs(rc)
	if err != nil {
		return "", &ExtractionError{Kind: KindDOCX, Reason: "parse word/document.xml", Err: err}
	}
	return strings.Join(paragraphs, "\n"), nil
}

// readParagraphs returns the text of every w:p in document order. Nested
// paragraphs (text boxes) are emitted before the paragraph that holds them.
func readParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		out   []string
		stack []*strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Space != wordNamespace {
				continue
			}
			switch el.Name.Local {
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				var v string
				if err := dec.DecodeElement(&v, &el); err != nil {
					return nil, err
				}
				if len(stack) > 0 {
					stack[len(stack)-1].WriteString(v)
				}
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\t')
				}
			case "br", "cr":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\n')
				}
			}
		case xml.EndElement:
			if el.Name.Space == wordNamespace && el.Name.Local == "p" && len(stack) > 0 {
				out = append(out, stack[len(stack)-1].String())
				stack = stack[:len(stack)-1]
			}
		}
	}
	return out, nil
}
