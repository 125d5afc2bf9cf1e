package services

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"vocab-ai/internal/metrics"
)

type ResolutionSource string

const (
	SourceCatalogFast  ResolutionSource = "catalog_fast"
	SourceCatalogFirst ResolutionSource = "catalog_first"
	SourceFallback     ResolutionSource = "fallback"
)

// Resolution is the model picked for one generation call.
type Resolution struct {
	Model  string
	Source ResolutionSource
}

// ResolveModel picks a generate-capable model from the provider catalog,
// preferring the first identifier that contains the fast-tier marker. It never
// fails: catalog errors and empty catalogs resolve to the provider fallback.
func ResolveModel(ctx context.Context, p Provider) (res Resolution) {
	res = Resolution{Model: p.FallbackModel(), Source: SourceFallback}
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("provider", p.Name()).Msg("model catalog lookup panicked")
			res = Resolution{Model: p.FallbackModel(), Source: SourceFallback}
		}
		metrics.ObserveResolution(p.Name(), string(res.Source))
	}()

	models, err := p.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Str("provider", p.Name()).Str("fallback", res.Model).Msg("model catalog unavailable")
		return res
	}
	return pickModel(models, p.FastMarker(), p.FallbackModel())
}

func pickModel(models []string, marker, fallback string) Resolution {
	marker = strings.ToLower(marker)
	first := ""
	for _, m := range models {
		if m == "" {
			continue
		}
		if first == "" {
			first = m
		}
		if marker != "" && strings.Contains(strings.ToLower(m), marker) {
			return Resolution{Model: m, Source: SourceCatalogFast}
		}
	}
	if first != "" {
		return Resolution{Model: first, Source: SourceCatalogFirst}
	}
	return Resolution{Model: fallback, Source: SourceFallback}
}
