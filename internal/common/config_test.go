package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{
		"BRIGHT_DB_PATH", "OLLAMA_MODEL", "OLLAMA_BASE_URL", "OLLAMA_TEMPERATURE",
		"PSEUDO_NER_URL", "PSEUDO_TOKEN", "PSEUDO_GLOBAL_TOKENS", "OCR_SERVICE_URL",
		"BRIGHT_USE_LLM", "BRIGHT_USE_NEGATION", "BRIGHT_WORKERS",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadConfig()

	assert.Equal(t, "data/bright.csv", cfg.Database.Path)
	assert.Equal(t, "qwen3:4b-instruct", cfg.Ollama.Model)
	assert.Equal(t, "http://localhost:11434", cfg.Ollama.BaseURL)
	assert.Zero(t, cfg.Ollama.Temperature)
	assert.Equal(t, 2, cfg.Ollama.MaxRetries)
	assert.Equal(t, "http://localhost:8055", cfg.Pseudo.NERBaseURL)
	assert.Empty(t, cfg.Pseudo.Token)
	assert.False(t, cfg.Pseudo.ConsistentAcrossPID)
	assert.Empty(t, cfg.OCR.BaseURL)
	assert.True(t, cfg.Extraction.UseLLM)
	assert.True(t, cfg.Extraction.UseNegation)
	assert.Zero(t, cfg.Extraction.Workers)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BRIGHT_DB_PATH", "/data/cohort.csv")
	t.Setenv("OLLAMA_TEMPERATURE", "0.2")
	t.Setenv("OLLAMA_TIMEOUT", "30s")
	t.Setenv("BRIGHT_USE_LLM", "false")
	t.Setenv("BRIGHT_WORKERS", "4")
	t.Setenv("PSEUDO_TOKEN", "s3cret")

	cfg := LoadConfig()

	assert.Equal(t, "/data/cohort.csv", cfg.Database.Path)
	assert.Equal(t, "s3cret", cfg.Pseudo.Token)
	assert.InDelta(t, 0.2, float64(cfg.Ollama.Temperature), 1e-6)
	assert.Equal(t, 30*time.Second, cfg.Ollama.Timeout)
	assert.False(t, cfg.Extraction.UseLLM)
	assert.Equal(t, 4, cfg.Extraction.Workers)
}

func TestLoadConfigIgnoresUnparseable(t *testing.T) {
	t.Setenv("OLLAMA_MAX_RETRIES", "lots")
	t.Setenv("OLLAMA_TIMEOUT", "soon")
	t.Setenv("BRIGHT_USE_LLM", "maybe")

	cfg := LoadConfig()
	assert.Equal(t, 2, cfg.Ollama.MaxRetries)
	assert.Equal(t, 120*time.Second, cfg.Ollama.Timeout)
	assert.True(t, cfg.Extraction.UseLLM)
}

func TestConfigValidate(t *testing.T) {
	cfg := LoadConfig()
	cfg.Database.Path = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)

	cfg = LoadConfig()
	cfg.Ollama.BaseURL = ""
	assert.Error(t, cfg.Validate())

	cfg = LoadConfig()
	cfg.Extraction.Workers = -1
	assert.Error(t, cfg.Validate())
}
