package pdftext

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OCRConfig for the external OCR service.
type OCRConfig struct {
	BaseURL string        // if empty, falls back to env OCR_SERVICE_URL
	Timeout time.Duration // OCR of a full document can take minutes
}

// OCRClient posts scanned PDFs to an HTTP OCR service and returns the
// recognized text.
type OCRClient struct {
	cfg  OCRConfig
	http *http.Client
	log  *slog.Logger
}

func NewOCRClient(cfg OCRConfig, logger *slog.Logger) *OCRClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OCR_SERVICE_URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRClient{
		cfg:  OCRConfig{BaseURL: strings.TrimRight(cfg.BaseURL, "/"), Timeout: cfg.Timeout},
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

type ocrRequest struct {
	Filename  string   `json:"filename"`
	Data      string   `json:"data"` // base64 PDF bytes
	Languages []string `json:"languages"`
}

type ocrResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

// Recognize sends the PDF at path to the OCR service.
func (c *OCRClient) Recognize(ctx context.Context, path string) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("ocr service url not configured")
	}

	rid := uuid.New().String()
	start := time.Now()

	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	body, err := json.Marshal(ocrRequest{
		Filename:  filepath.Base(path),
		Data:      base64.StdEncoding.EncodeToString(raw),
		Languages: []string{"fr", "en"},
	})
	if err != nil {
		return "", fmt.Errorf("encode ocr request: %w", err)
	}

	c.log.Info("ocr.request",
		"req_id", rid, "file", filepath.Base(path), "bytes", len(raw))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("ocr.send_error", "req_id", rid, "error", err)
		return "", err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("ocr.response_body_close_error", "req_id", rid, "error", err)
		}
	}(resp.Body)

	out, _ := io.ReadAll(resp.Body)

	c.log.Info("ocr.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"bytes", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ocr status %d: %s", resp.StatusCode, string(out))
	}

	var parsed ocrResponse
	if err := json.Unmarshal(out, &parsed); err != nil {
		return "", fmt.Errorf("decode ocr response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("ocr service: %s", parsed.Error)
	}
	if strings.TrimSpace(parsed.Text) == "" {
		return "", fmt.Errorf("ocr returned empty text")
	}
	return parsed.Text, nil
}
