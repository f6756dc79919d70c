package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database   DatabaseConfig
	Ollama     OllamaConfig
	Pseudo     PseudoConfig
	OCR        OCRConfig
	Extraction ExtractionConfig
}

// DatabaseConfig holds CSV database configuration
type DatabaseConfig struct {
	Path        string
	LockTimeout time.Duration
}

// OllamaConfig holds LLM inference server configuration
type OllamaConfig struct {
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

// PseudoConfig holds pseudonymization service configuration
type PseudoConfig struct {
	NERBaseURL          string
	Token               string
	Timeout             time.Duration
	ConsistentAcrossPID bool
}

// OCRConfig holds the scanned-document OCR service configuration
type OCRConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ExtractionConfig holds pipeline configuration
type ExtractionConfig struct {
	UseLLM      bool
	UseNegation bool
	Workers     int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:        getEnv("BRIGHT_DB_PATH", "data/bright.csv"),
			LockTimeout: getEnvAsDuration("BRIGHT_DB_LOCK_TIMEOUT", 10*time.Second),
		},
		Ollama: OllamaConfig{
			Model:       getEnv("OLLAMA_MODEL", "qwen3:4b-instruct"),
			BaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			Temperature: getEnvAsFloat32("OLLAMA_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OLLAMA_TIMEOUT", 120*time.Second),
			MaxRetries:  getEnvAsInt("OLLAMA_MAX_RETRIES", 2),
		},
		Pseudo: PseudoConfig{
			NERBaseURL:          getEnv("PSEUDO_NER_URL", "http://localhost:8055"),
			Token:               getEnv("PSEUDO_TOKEN", ""),
			Timeout:             getEnvAsDuration("PSEUDO_NER_TIMEOUT", 60*time.Second),
			ConsistentAcrossPID: getEnvAsBool("PSEUDO_GLOBAL_TOKENS", false),
		},
		OCR: OCRConfig{
			BaseURL: getEnv("OCR_SERVICE_URL", ""),
			Timeout: getEnvAsDuration("OCR_TIMEOUT", 5*time.Minute),
		},
		Extraction: ExtractionConfig{
			UseLLM:      getEnvAsBool("BRIGHT_USE_LLM", true),
			UseNegation: getEnvAsBool("BRIGHT_USE_NEGATION", true),
			Workers:     getEnvAsInt("BRIGHT_WORKERS", 0), // 0 -> NumCPU/2
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return NewAppError("CONFIG_ERROR", "BRIGHT_DB_PATH is required", ErrInvalidInput)
	}
	if c.Ollama.BaseURL == "" {
		return NewAppError("CONFIG_ERROR", "OLLAMA_BASE_URL is required", ErrInvalidInput)
	}
	if c.Extraction.Workers < 0 {
		return NewAppError("CONFIG_ERROR", "BRIGHT_WORKERS must be >= 0", ErrInvalidInput)
	}
	return nil
}
