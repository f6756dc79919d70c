package pseudo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entity is one PHI span reported by the NER service. Date carries the
// parsed ISO date for birth date entities when the service resolves one.
type Entity struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Date  string `json:"date,omitempty"`
}

// NERConfig for the de-identification service.
type NERConfig struct {
	BaseURL string // if empty, falls back to env PSEUDO_NER_URL
	Token   string // bearer token; if empty, falls back to env PSEUDO_TOKEN
	Timeout time.Duration
}

// NERClient calls the external named entity recognition service that powers
// pseudonymization.
type NERClient struct {
	cfg  NERConfig
	http *http.Client
	log  *slog.Logger
}

func NewNERClient(cfg NERConfig, logger *slog.Logger) *NERClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("PSEUDO_NER_URL")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8055"
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("PSEUDO_TOKEN")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NERClient{
		cfg:  NERConfig{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), Token: cfg.Token, Timeout: cfg.Timeout},
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type nerRequest struct {
	Text string `json:"text"`
}

type nerResponse struct {
	Entities []Entity `json:"entities"`
	Error    string   `json:"error,omitempty"`
}

// Detect returns the PHI entities found in text. Offsets refer to the
// submitted text.
func (c *NERClient) Detect(ctx context.Context, text string) ([]Entity, error) {
	rid := uuid.New().String()
	start := time.Now()

	body, err := json.Marshal(nerRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("encode ner request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("pseudo.ner.send_error", "req_id", rid, "error", err)
		return nil, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("pseudo.ner.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	c.log.Info("pseudo.ner.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ner status %d: %s", resp.StatusCode, string(raw))
	}
	var parsed nerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode ner response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("ner service: %s", parsed.Error)
	}
	return parsed.Entities, nil
}

// Health reports whether the service answers its health endpoint.
func (c *NERClient) Health(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("pseudo.ner.health_check.failed", "error", err)
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode/100 == 2
}
