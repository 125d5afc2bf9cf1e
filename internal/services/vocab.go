package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"vocab-ai/internal/config"
	"vocab-ai/internal/metrics"
	"vocab-ai/internal/models"
)

// FailureKind says why a generation produced no entries.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureCall        FailureKind = "call_failed"
	FailureEmptyReply  FailureKind = "empty_reply"
	FailureUnparseable FailureKind = "unparseable_reply"
)

// GenerationResult is the outcome of one pipeline run. Entries is never nil;
// it is empty whenever Failure is set. Err carries diagnostics for logs only.
type GenerationResult struct {
	Entries []models.VocabEntry
	Model   string
	Failure FailureKind
	Err     error
}

func (r GenerationResult) OK() bool { return r.Failure == FailureNone }

func failed(model string, kind FailureKind, err error) GenerationResult {
	return GenerationResult{Entries: []models.VocabEntry{}, Model: model, Failure: kind, Err: err}
}

// VocabService turns document text into vocabulary entries through a hosted model.
type VocabService struct {
	providers ProviderFactory
	cfg       config.VocabConfig
}

func NewVocabService(providers ProviderFactory, cfg config.VocabConfig) *VocabService {
	if cfg.DefaultCount <= 0 {
		cfg.DefaultCount = 10
	}
	if cfg.MaxCount < cfg.DefaultCount {
		cfg.MaxCount = cfg.DefaultCount
	}
	if cfg.TextLimit <= 0 {
		cfg.TextLimit = 10000
	}
	return &VocabService{providers: providers, cfg: cfg}
}

// Count normalises a requested item count to the configured bounds.
func (s *VocabService) Count(requested int) int {
	if requested <= 0 {
		return s.cfg.DefaultCount
	}
	return min(requested, s.cfg.MaxCount)
}

// Generate resolves a model, prompts it with a bounded prefix of text and
// recovers the entry list from the reply. Every failure degrades to an empty
// result with a FailureKind; no error escapes.
func (s *VocabService) Generate(ctx context.Context, credential, text string, count int) GenerationResult {
	provider, err := s.providers(ctx, credential)
	if err != nil {
		log.Warn().Err(err).Msg("model provider unavailable")
		metrics.ObserveGeneration("unknown", string(FailureCall))
		return failed("", FailureCall, err)
	}

	res := s.generate(ctx, provider, text, s.Count(count))
	outcome := "ok"
	if !res.OK() {
		outcome = string(res.Failure)
	}
	metrics.ObserveGeneration(provider.Name(), outcome)
	return res
}

func (s *VocabService) generate(ctx context.Context, provider Provider, text string, count int) GenerationResult {
	resolution := ResolveModel(ctx, provider)
	logger := log.With().Str("provider", provider.Name()).Str("model", resolution.Model).Logger()

	prompt := buildVocabPrompt(truncateRunes(text, s.cfg.TextLimit), count, s.cfg.Audience, s.cfg.NativeLanguage)

	started := time.Now()
	raw, err := callModel(ctx, provider, resolution.Model, prompt)
	metrics.ObserveModelCall(provider.Name(), resolution.Model, time.Since(started))
	if err != nil {
		logger.Error().Err(err).Msg("model call failed")
		return failed(resolution.Model, FailureCall, err)
	}
	if strings.TrimSpace(raw) == "" {
		logger.Warn().Msg("model returned an empty reply")
		return failed(resolution.Model, FailureEmptyReply, errors.New("empty model reply"))
	}

	entries, err := RecoverEntries(raw)
	if err != nil {
		logger.Warn().Err(err).Msg("could not recover vocabulary list")
		logger.Debug().Str("reply", truncateRunes(raw, 500)).Msg("unparseable model reply")
		return failed(resolution.Model, FailureUnparseable, err)
	}

	logger.Info().
		Int("requested", count).
		Int("entries", len(entries)).
		Dur("took", time.Since(started)).
		Msg("vocabulary generated")
	return GenerationResult{Entries: entries, Model: resolution.Model}
}

func callModel(ctx context.Context, provider Provider, model, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return provider.Generate(ctx, model, prompt)
}

func buildVocabPrompt(text string, count int, audience, language string) string {
	if audience == "" {
		audience = "English learners"
	}
	if language == "" {
		language = "the learner's native language"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are an expert English teacher for %s.\n\n", audience)
	b.WriteString("TASK:\n")
	fmt.Fprintf(&b, "1. Read the text below and pick the %d most useful difficult vocabulary words for this audience.\n", count)
	fmt.Fprintf(&b, "2. For each word give its phonetic transcription, its meaning in %s, 2 common phrases, and 1 example sentence.\n", language)
	b.WriteString("3. The example sentence must contain the word exactly as written and be funny and memorable, in a Gen-Z tone. Never write a plain textbook sentence.\n\n")
	b.WriteString("TEXT TO ANALYZE:\n")
	b.WriteString(text)
	b.WriteString("\n\nOUTPUT FORMAT: respond with ONLY a JSON array, no prose and no markdown:\n")
	b.WriteString(`[
  {
    "word": "English word",
    "phonetic": "/.../",
    "meaning": "translation",
    "phrases": ["phrase 1", "phrase 2"],
    "example_sentence": "Funny sentence using the word."
  }
]`)
	b.WriteString("\n")
	return b.String()
}

// truncateRunes cuts s to at most limit runes without splitting a character.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
