package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-ai/internal/config"
)

func newTestIngestion(p Provider) *IngestionService {
	return NewIngestionService(NewExtractor(), NewVocabService(factoryFor(p), config.VocabConfig{}), 50)
}

func TestIngestDOCX(t *testing.T) {
	p := &fakeProvider{reply: twoEntryReply}
	paragraph := strings.Repeat("Students explore new ideas with resilient minds. ", 3)
	data := buildDOCX(t, "<w:p><w:r><w:t>"+paragraph+"</w:t></w:r></w:p>")

	res, err := newTestIngestion(p).Ingest(context.Background(), "reading.docx", data, "key", 2)
	require.NoError(t, err)
	assert.Equal(t, KindDOCX, res.Kind)
	assert.Equal(t, "reading.docx", res.Filename)
	assert.Greater(t, res.TextLength, 50)
	require.True(t, res.Generation.OK())
	assert.Len(t, res.Generation.Entries, 2)
	assert.Contains(t, p.lastPrompt(), "Students explore new ideas")
}

func TestIngestRejectsBeforeCallingModel(t *testing.T) {
	p := &fakeProvider{reply: twoEntryReply}
	svc := newTestIngestion(p)

	_, err := svc.Ingest(context.Background(), "notes.txt", []byte("plenty of text"), "key", 0)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = svc.Ingest(context.Background(), "scan.pdf", buildPDF(t, ""), "key", 0)
	assert.ErrorIs(t, err, ErrInsufficientText)

	_, err = svc.Ingest(context.Background(), "empty.docx", nil, "key", 0)
	assert.ErrorIs(t, err, ErrInsufficientText)

	_, err = svc.Ingest(context.Background(), "fake.pdf", []byte("definitely not a pdf document"), "key", 0)
	var extractErr *ExtractionError
	assert.ErrorAs(t, err, &extractErr)

	assert.Empty(t, p.used)
}

func TestIngestReportsGenerationFailure(t *testing.T) {
	p := &fakeProvider{reply: "no json here"}
	paragraph := strings.Repeat("Long enough document text for the pipeline. ", 3)
	data := buildDOCX(t, "<w:p><w:r><w:t>"+paragraph+"</w:t></w:r></w:p>")

	res, err := newTestIngestion(p).Ingest(context.Background(), "reading.docx", data, "key", 0)
	require.NoError(t, err)
	assert.Equal(t, FailureUnparseable, res.Generation.Failure)
	assert.Empty(t, res.Generation.Entries)
}
