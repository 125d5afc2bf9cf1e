package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-ai/internal/config"
)

func newOpenAITestServer(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/models":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"object": "list",
				"data": []map[string]any{
					{"id": "text-embedding-3-small", "object": "model"},
					{"id": "gpt-4o", "object": "model"},
					{"id": "gpt-4o-audio-preview", "object": "model"},
					{"id": "gpt-4o-mini", "object": "model"},
				},
			})
		case "/v1/chat/completions":
			var req map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o-mini", req["model"])
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id":     "chatcmpl-1",
				"object": "chat.completion",
				"model":  "gpt-4o-mini",
				"choices": []map[string]any{{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": reply},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOpenAIProviderEndToEnd(t *testing.T) {
	srv := newOpenAITestServer(t, twoEntryReply)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", config.OpenAIConfig{
		Endpoint:      srv.URL + "/v1",
		FallbackModel: "gpt-3.5-turbo",
		FastMarker:    "mini",
	})

	models, err := p.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, models)

	res := NewVocabService(factoryFor(p), config.VocabConfig{}).Generate(context.Background(), "test-key", "passage", 2)
	require.True(t, res.OK(), "failure: %s (%v)", res.Failure, res.Err)
	assert.Equal(t, "gpt-4o-mini", res.Model)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, "Explore", res.Entries[0].Word)
}

func TestNewProviderFactory(t *testing.T) {
	_, err := NewProviderFactory(config.Config{Provider: "mystery"})
	assert.Error(t, err)

	factory, err := NewProviderFactory(config.Config{Provider: config.ProviderOpenAI})
	require.NoError(t, err)

	_, err = factory(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrMissingCredential)

	p, err := factory(context.Background(), "sk-test")
	require.NoError(t, err)
	assert.Equal(t, config.ProviderOpenAI, p.Name())
}
