package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vocab-ai/internal/config"
)

// ErrMissingCredential is returned when no API key was supplied or configured.
var ErrMissingCredential = errors.New("api key is required")

// Provider is a hosted model service that can list its catalog and answer a
// single text prompt with free text.
type Provider interface {
	Name() string
	// ListModels returns generate-capable model identifiers in catalog order.
	ListModels(ctx context.Context) ([]string, error)
	Generate(ctx context.Context, model, prompt string) (string, error)
	// FastMarker is the substring that identifies the provider's fast tier.
	FastMarker() string
	// FallbackModel is used when catalog discovery yields nothing.
	FallbackModel() string
}

// ProviderFactory builds a Provider for the credential of a single request.
type ProviderFactory func(ctx context.Context, credential string) (Provider, error)

// NewProviderFactory selects the provider implementation named in cfg.
func NewProviderFactory(cfg config.Config) (ProviderFactory, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return func(ctx context.Context, credential string) (Provider, error) {
			if strings.TrimSpace(credential) == "" {
				return nil, ErrMissingCredential
			}
			return NewGeminiProvider(ctx, credential, cfg.Gemini)
		}, nil
	case config.ProviderOpenAI:
		return func(ctx context.Context, credential string) (Provider, error) {
			if strings.TrimSpace(credential) == "" {
				return nil, ErrMissingCredential
			}
			return NewOpenAIProvider(credential, cfg.OpenAI), nil
		}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
