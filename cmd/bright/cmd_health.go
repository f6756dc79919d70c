package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/llm/ollama"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the configured services and database",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	failed := false

	check := func(name string, ok bool, detail string) {
		status := "ok"
		if !ok {
			status = "FAIL"
			failed = true
		}
		fmt.Fprintf(out, "%-22s %-4s %s\n", name, status, detail)
	}

	chat := ollama.NewClient(ollama.Config{
		Model:      cfg.Ollama.Model,
		BaseURL:    cfg.Ollama.BaseURL,
		Timeout:    cfg.Ollama.Timeout,
		MaxRetries: 1,
	}, logger)
	check("ollama", chat.HealthCheck(ctx), cfg.Ollama.BaseURL+" model="+cfg.Ollama.Model)

	ner := newNERClient(cfg, logger)
	check("pseudonymization", ner.Health(ctx), cfg.Pseudo.NERBaseURL)

	if cfg.OCR.BaseURL == "" {
		fmt.Fprintf(out, "%-22s %-4s %s\n", "ocr", "skip", "OCR_SERVICE_URL not set")
	} else {
		resp, err := healthGet(ctx, cfg.OCR.BaseURL+"/health", cfg.OCR.Timeout)
		check("ocr", err == nil && resp, cfg.OCR.BaseURL)
	}

	if _, err := os.Stat(cfg.Database.Path); err != nil {
		fmt.Fprintf(out, "%-22s %-4s %s\n", "database", "skip", cfg.Database.Path+" (not created yet)")
	} else {
		db, err := store.Load(cfg.Database.Path)
		detail := cfg.Database.Path
		if err == nil {
			detail = fmt.Sprintf("%s (%d rows)", cfg.Database.Path, len(db.Rows))
		}
		check("database", err == nil, detail)
	}

	if failed {
		return fmt.Errorf("one or more health checks failed")
	}
	return nil
}

func healthGet(ctx context.Context, url string, timeout time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK, nil
}
