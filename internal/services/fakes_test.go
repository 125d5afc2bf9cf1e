package services

import (
	"context"
	"sync"
)

type fakeProvider struct {
	mu       sync.Mutex
	models   []string
	listErr  error
	reply    string
	genErr   error
	panicGen bool
	marker   string
	fallback string

	prompts []string
	used    []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) FastMarker() string {
	if f.marker == "" {
		return "flash"
	}
	return f.marker
}

func (f *fakeProvider) FallbackModel() string {
	if f.fallback == "" {
		return "gemini-2.5-flash"
	}
	return f.fallback
}

func (f *fakeProvider) ListModels(context.Context) ([]string, error) {
	return f.models, f.listErr
}

func (f *fakeProvider) Generate(_ context.Context, model, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.used = append(f.used, model)
	f.mu.Unlock()
	if f.panicGen {
		panic("boom")
	}
	return f.reply, f.genErr
}

func (f *fakeProvider) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func factoryFor(p Provider) ProviderFactory {
	return func(_ context.Context, credential string) (Provider, error) {
		if credential == "" {
			return nil, ErrMissingCredential
		}
		return p, nil
	}
}
