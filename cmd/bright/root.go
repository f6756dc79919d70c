package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/common"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/llm/ollama"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pdftext"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "bright",
	Short: "Clinical feature extraction for neuro-oncology reports",
	Long: "BRIGHT extracts structured clinical features from French neuro-oncology\n" +
		"PDF reports: classification, rule-based and LLM extraction, pseudonymization,\n" +
		"CSV storage and per-patient timeline aggregation.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(commitCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(benchmarkCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(demoCmd)
	rootCmd.Version = version
}

func main() {
	slog.SetDefault(newLogger())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newLogger keeps the message and attributes but drops time and level, the
// dotted event names carry enough structure on a terminal.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey || a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func loadConfig() (*common.Config, error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newPipeline(cfg *common.Config, logger *slog.Logger) *pipeline.Pipeline {
	var chat *ollama.Client
	if cfg.Extraction.UseLLM {
		chat = ollama.NewClient(ollama.Config{
			Model:      cfg.Ollama.Model,
			BaseURL:    cfg.Ollama.BaseURL,
			Timeout:    cfg.Ollama.Timeout,
			MaxRetries: cfg.Ollama.MaxRetries,
		}, logger)
	}
	pcfg := pipeline.Config{
		UseLLM:      cfg.Extraction.UseLLM,
		UseNegation: cfg.Extraction.UseNegation,
	}
	if chat != nil {
		return pipeline.New(pcfg, chat, logger)
	}
	return pipeline.New(pcfg, nil, logger)
}

func newTextExtractor(cfg *common.Config, logger *slog.Logger) *pdftext.Extractor {
	var ocr *pdftext.OCRClient
	if cfg.OCR.BaseURL != "" {
		ocr = pdftext.NewOCRClient(pdftext.OCRConfig{
			BaseURL: cfg.OCR.BaseURL,
			Timeout: cfg.OCR.Timeout,
		}, logger)
	}
	return pdftext.NewExtractor(ocr, logger)
}

func newNERClient(cfg *common.Config, logger *slog.Logger) *pseudo.NERClient {
	return pseudo.NewNERClient(pseudo.NERConfig{
		BaseURL: cfg.Pseudo.NERBaseURL,
		Token:   cfg.Pseudo.Token,
		Timeout: cfg.Pseudo.Timeout,
	}, logger)
}

func workerCount(cfg *common.Config) int {
	if cfg.Extraction.Workers > 0 {
		return cfg.Extraction.Workers
	}
	return max(1, runtime.NumCPU()/2)
}
