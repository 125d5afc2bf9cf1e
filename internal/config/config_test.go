package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "vocab.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("VOCAB_COUNT", "")

	cfg := Load()
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, dbPath, cfg.Database)
	assert.DirExists(t, filepath.Dir(dbPath))
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.FallbackModel)
	assert.Equal(t, "flash", cfg.Gemini.FastMarker)
	assert.Equal(t, 10, cfg.Vocab.DefaultCount)
	assert.Equal(t, 10000, cfg.Vocab.TextLimit)
	assert.Empty(t, cfg.APIKey())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "vocab.db"))
	t.Setenv("LLM_PROVIDER", "OpenAI")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("VOCAB_COUNT", "12")
	t.Setenv("VOCAB_MAX_COUNT", "not-a-number")
	t.Setenv("LOG_PRETTY", "true")

	cfg := Load()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, 12, cfg.Vocab.DefaultCount)
	assert.Equal(t, 30, cfg.Vocab.MaxCount)
	assert.True(t, cfg.Logging.Pretty)
}
