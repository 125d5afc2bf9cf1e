package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type panickyProvider struct{ fakeProvider }

func (p *panickyProvider) ListModels(context.Context) ([]string, error) {
	panic("catalog exploded")
}

func TestResolveModelPrefersFastTier(t *testing.T) {
	p := &fakeProvider{models: []string{"models/gemini-pro", "models/gemini-1.5-flash", "models/gemini-2.0-flash"}}

	res := ResolveModel(context.Background(), p)
	assert.Equal(t, "models/gemini-1.5-flash", res.Model)
	assert.Equal(t, SourceCatalogFast, res.Source)
}

func TestResolveModelMarkerIsCaseInsensitive(t *testing.T) {
	p := &fakeProvider{models: []string{"models/gemini-pro", "models/Gemini-FLASH-latest"}}
	assert.Equal(t, "models/Gemini-FLASH-latest", ResolveModel(context.Background(), p).Model)
}

func TestResolveModelFallsBackToFirstCapable(t *testing.T) {
	p := &fakeProvider{models: []string{"", "models/gemini-pro", "models/gemini-ultra"}}

	res := ResolveModel(context.Background(), p)
	assert.Equal(t, "models/gemini-pro", res.Model)
	assert.Equal(t, SourceCatalogFirst, res.Source)
}

func TestResolveModelUsesFallback(t *testing.T) {
	cases := map[string]Provider{
		"catalog error": &fakeProvider{listErr: errors.New("network down")},
		"empty catalog": &fakeProvider{models: []string{}},
		"catalog panic": &panickyProvider{},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			res := ResolveModel(context.Background(), p)
			assert.Equal(t, "gemini-2.5-flash", res.Model)
			assert.Equal(t, SourceFallback, res.Source)
		})
	}
}

func TestPickModelWithoutMarker(t *testing.T) {
	res := pickModel([]string{"gpt-4o", "gpt-4o-mini"}, "", "gpt-3.5-turbo")
	assert.Equal(t, "gpt-4o", res.Model)
	assert.Equal(t, SourceCatalogFirst, res.Source)
}
