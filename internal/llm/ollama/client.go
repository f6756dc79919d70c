package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/llm"
)

var (
	// ErrConnection means the server was unreachable after retries.
	ErrConnection = errors.New("ollama unreachable")
	// ErrModelNotFound means the configured model is not pulled.
	ErrModelNotFound = errors.New("ollama model not found")
)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatPayload struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options"`
	Format   map[string]any `json:"format,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	TotalDuration   int64 `json:"total_duration"`
	PromptEvalCount int   `json:"prompt_eval_count"`
	EvalCount       int   `json:"eval_count"`
}

// Chat implements llm.ChatClient against /api/chat. When req.Format is set
// it is passed through for schema-constrained decoding. Model-not-found is
// returned immediately; connection and timeout errors are retried.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	rid := uuid.New().String()
	start := time.Now()

	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatPayload{
		Model:    c.cfg.Model,
		Messages: messages,
		Options:  map[string]any{"temperature": req.Temperature},
		Format:   req.Format,
	}

	c.log.Info("ollama.chat.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(req.Prompt),
		"constrained", req.Format != nil,
	)

	raw, err := c.postWithRetry(ctx, rid, c.cfg.BaseURL+"/api/chat", payload)
	if err != nil {
		c.log.Error("ollama.chat.error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}

	c.log.Info("ollama.chat.ok",
		"req_id", rid,
		"eval_count", parsed.EvalCount,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &llm.ChatResponse{
		Content:         parsed.Message.Content,
		Model:           parsed.Model,
		TotalDurationNS: parsed.TotalDuration,
		PromptEvalCount: parsed.PromptEvalCount,
		EvalCount:       parsed.EvalCount,
	}, nil
}

// Generate is a plain completion helper for small classification calls.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.Chat(ctx, llm.ChatRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (c *Client) postWithRetry(ctx context.Context, rid, url string, payload any) ([]byte, error) {
	var lastErr error
	attempts := c.cfg.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := c.post(ctx, url, payload)
		if err == nil {
			return raw, nil
		}
		if errors.Is(err, ErrModelNotFound) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		c.log.Warn("ollama.request.retry",
			"req_id", rid, "attempt", attempt, "max_attempts", attempts, "error", err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}
	return nil, fmt.Errorf("%w at %s after %d attempts: %v",
		ErrConnection, c.cfg.BaseURL, attempts, lastErr)
}

func (c *Client) post(ctx context.Context, url string, payload any) ([]byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("ollama.response_body_close_error", "error", err)
		}
	}(resp.Body)

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q, run `ollama pull %s` first",
			ErrModelNotFound, c.cfg.Model, c.cfg.Model)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(raw))
	}
	return raw, nil
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// ListModels returns the model names available on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %v", ErrConnection, c.cfg.BaseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("ollama status %d", resp.StatusCode)
	}
	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// HealthCheck reports whether the server responds and the configured model
// is available. Prefix matches count, quantization suffixes vary.
func (c *Client) HealthCheck(ctx context.Context) bool {
	names, err := c.ListModels(ctx)
	if err != nil {
		c.log.Warn("ollama.health_check.failed", "error", err)
		return false
	}
	for _, name := range names {
		if name == c.cfg.Model || strings.HasPrefix(name, c.cfg.Model) {
			return true
		}
	}
	return false
}
