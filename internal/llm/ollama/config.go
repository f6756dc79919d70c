package ollama

import (
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Config for the Ollama client.
type Config struct {
	Model      string        // if empty, falls back to env OLLAMA_MODEL
	BaseURL    string        // default http://localhost:11434
	Timeout    time.Duration // http client timeout; generation can be slow
	MaxRetries int           // retries on transient failures
	RetryDelay time.Duration // delay between retries
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OLLAMA_MODEL")
	}
	if cfg.Model == "" {
		cfg.Model = "qwen3:4b-instruct"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}
