package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config stores runtime configuration loaded from environment variables.
type Config struct {
	Port        string
	Provider    string
	Database    string
	MaxUploadMB int

	Gemini  GeminiConfig
	OpenAI  OpenAIConfig
	Vocab   VocabConfig
	Logging LoggingConfig
}

type GeminiConfig struct {
	APIKey        string
	BaseURL       string
	FallbackModel string
	FastMarker    string
}

type OpenAIConfig struct {
	APIKey        string
	Endpoint      string
	FallbackModel string
	FastMarker    string
}

// VocabConfig holds the generation parameters handed to the pipeline.
type VocabConfig struct {
	DefaultCount   int
	MaxCount       int
	TextLimit      int
	MinTextLength  int
	Audience       string
	NativeLanguage string
}

type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Load reads configuration from the environment, providing sensible defaults.
func Load() Config {
	// Load .env file if it exists (useful for development)
	_ = godotenv.Load()
	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		Provider:    strings.ToLower(getEnv("LLM_PROVIDER", ProviderGemini)),
		Database:    getEnv("DATABASE_PATH", "./data/vocab.db"),
		MaxUploadMB: getEnvInt("MAX_UPLOAD_MB", 20),
		Gemini: GeminiConfig{
			APIKey:        os.Getenv("GOOGLE_API_KEY"),
			BaseURL:       os.Getenv("GEMINI_BASE_URL"),
			FallbackModel: getEnv("GEMINI_FALLBACK_MODEL", "gemini-2.5-flash"),
			FastMarker:    getEnv("GEMINI_FAST_MARKER", "flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey:        os.Getenv("OPENAI_API_KEY"),
			Endpoint:      getEnv("OPENAI_API_ENDPOINT", "https://api.openai.com/v1"),
			FallbackModel: getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			FastMarker:    getEnv("OPENAI_FAST_MARKER", "mini"),
		},
		Vocab: VocabConfig{
			DefaultCount:   getEnvInt("VOCAB_COUNT", 10),
			MaxCount:       getEnvInt("VOCAB_MAX_COUNT", 30),
			TextLimit:      getEnvInt("VOCAB_TEXT_LIMIT", 10000),
			MinTextLength:  getEnvInt("VOCAB_MIN_TEXT", 50),
			Audience:       getEnv("VOCAB_AUDIENCE", "Chinese senior high school students preparing for the Gaokao"),
			NativeLanguage: getEnv("VOCAB_NATIVE_LANGUAGE", "Chinese"),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Pretty:     getEnvBool("LOG_PRETTY", false),
			File:       os.Getenv("LOG_FILE"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 50),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 3),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 14),
		},
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database).Msg("failed to ensure database dir")
	}

	return cfg
}

// APIKey returns the pre-provisioned credential for the selected provider.
func (c Config) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAI.APIKey
	}
	return c.Gemini.APIKey
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Warn().Str("key", key).Str("value", raw).Int("fallback", fallback).Msg("config value is not an integer")
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return b
}
