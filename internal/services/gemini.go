package services

import (
	"context"
	"fmt"
	"slices"

	"google.golang.org/genai"

	"vocab-ai/internal/config"
)

const geminiGenerateAction = "generateContent"

// GeminiProvider talks to the Gemini API through the genai SDK.
type GeminiProvider struct {
	client   *genai.Client
	fallback string
	marker   string
}

func NewGeminiProvider(ctx context.Context, apiKey string, cfg config.GeminiConfig) (*GeminiProvider, error) {
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{
		client:   client,
		fallback: cfg.FallbackModel,
		marker:   cfg.FastMarker,
	}, nil
}

func (p *GeminiProvider) Name() string          { return config.ProviderGemini }
func (p *GeminiProvider) FastMarker() string    { return p.marker }
func (p *GeminiProvider) FallbackModel() string { return p.fallback }

func (p *GeminiProvider) ListModels(ctx context.Context) ([]string, error) {
	var out []string
	for model, err := range p.client.Models.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list gemini models: %w", err)
		}
		if model == nil || !slices.Contains(model.SupportedActions, geminiGenerateAction) {
			continue
		}
		out = append(out, model.Name)
	}
	return out, nil
}

func (p *GeminiProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.Models.GenerateContent(ctx, model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.8),
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	return resp.Text(), nil
}
