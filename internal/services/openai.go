package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"vocab-ai/internal/config"
)

// OpenAIProvider targets any OpenAI-compatible chat completion endpoint.
type OpenAIProvider struct {
	client   *openai.Client
	fallback string
	marker   string
}

func NewOpenAIProvider(apiKey string, cfg config.OpenAIConfig) *OpenAIProvider {
	oc := openai.DefaultConfig(apiKey)
	if cfg.Endpoint != "" {
		oc.BaseURL = cfg.Endpoint
	}
	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(oc),
		fallback: cfg.FallbackModel,
		marker:   cfg.FastMarker,
	}
}

func (p *OpenAIProvider) Name() string          { return config.ProviderOpenAI }
func (p *OpenAIProvider) FastMarker() string    { return p.marker }
func (p *OpenAIProvider) FallbackModel() string { return p.fallback }

// ListModels keeps chat-capable gpt-* identifiers; the catalog also carries
// embedding, audio and image models.
func (p *OpenAIProvider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list openai models: %w", err)
	}
	var out []string
	for _, m := range list.Models {
		id := strings.ToLower(m.ID)
		if !strings.HasPrefix(id, "gpt-") || strings.Contains(id, "audio") || strings.Contains(id, "realtime") {
			continue
		}
		out = append(out, m.ID)
	}
	return out, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert English teacher who writes vocabulary study material.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		Temperature: 0.8,
		MaxTokens:   4096,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
