package services

import (
	"context"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

// IngestResult describes one upload that made it through extraction.
type IngestResult struct {
	Filename   string
	Kind       DocumentKind
	TextLength int
	Generation GenerationResult
}

// IngestionService coordinates text extraction and vocabulary generation.
type IngestionService struct {
	extractor *Extractor
	vocab     *VocabService
	minText   int
}

func NewIngestionService(extractor *Extractor, vocab *VocabService, minText int) *IngestionService {
	return &IngestionService{
		extractor: extractor,
		vocab:     vocab,
		minText:   minText,
	}
}

// Ingest extracts text from an uploaded file and runs the generation pipeline.
// Extraction problems are returned as errors (ErrUnsupportedFormat,
// *ExtractionError, ErrInsufficientText) and the model is never called for
// them. Generation problems are reported in the result.
func (s *IngestionService) Ingest(ctx context.Context, filename string, data []byte, credential string, count int) (*IngestResult, error) {
	kind, err := KindFromFilename(filename)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.Extract(data, kind)
	if err != nil {
		return nil, err
	}
	if err := CheckUsable(text, s.minText); err != nil {
		log.Info().Str("file", filename).Int("chars", utf8.RuneCountInString(text)).Msg("document has too little text")
		return nil, err
	}

	log.Info().Str("file", filename).Str("kind", string(kind)).Int("chars", utf8.RuneCountInString(text)).Msg("document extracted")

	return &IngestResult{
		Filename:   filename,
		Kind:       kind,
		TextLength: utf8.RuneCountInString(text),
		Generation: s.vocab.Generate(ctx, credential, text, count),
	}, nil
}
