package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
)

var extractFlags struct {
	pid    string
	outDir string
	format string
	noLLM  bool
}

var extractCmd = &cobra.Command{
	Use:   "extract <file>...",
	Short: "Extract clinical features from report files",
	Long: `Extract structured clinical features from one or more reports and print
the results as JSON, one artifact per input file.

PDF inputs go through text extraction first (with OCR fallback for scanned
documents when OCR_SERVICE_URL is set). Plain .txt inputs are read as-is,
useful for already pseudonymized text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.StringVar(&extractFlags.pid, "pid", "", "Patient identifier attached to the results")
	f.StringVarP(&extractFlags.outDir, "output", "o", "", "Directory for per-document JSON artifacts (default: stdout)")
	f.StringVar(&extractFlags.format, "format", "json", "Output format: json or table")
	f.BoolVar(&extractFlags.noLLM, "no-llm", false, "Skip the LLM fallback tier, rules only")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if extractFlags.format != "json" && extractFlags.format != "table" {
		return fmt.Errorf("unknown format: %s (want json or table)", extractFlags.format)
	}
	if extractFlags.noLLM {
		cfg.Extraction.UseLLM = false
	}
	logger := newLogger()
	textExtractor := newTextExtractor(cfg, logger)
	ctx := cmd.Context()

	docs := make([]pipeline.Document, 0, len(args))
	for _, path := range args {
		var text string
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf":
			text, err = textExtractor.Extract(ctx, path)
			if err != nil {
				return fmt.Errorf("extract text from %s: %w", path, err)
			}
		case ".txt":
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			text = string(data)
		default:
			return fmt.Errorf("unsupported file type: %s (want .pdf or .txt)", path)
		}
		docs = append(docs, pipeline.Document{
			Text:       text,
			DocumentID: filepath.Base(path),
			PatientID:  extractFlags.pid,
		})
	}

	p := newPipeline(cfg, logger)
	results := p.ExtractBatch(ctx, docs, workerCount(cfg))

	if extractFlags.format == "table" {
		return writeResultTables(cmd.OutOrStdout(), results)
	}

	if extractFlags.outDir != "" {
		if err := os.MkdirAll(extractFlags.outDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	for i, result := range results {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		if extractFlags.outDir == "" {
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			continue
		}
		name := strings.TrimSuffix(filepath.Base(args[i]), filepath.Ext(args[i])) + ".json"
		outPath := filepath.Join(extractFlags.outDir, name)
		if err := os.WriteFile(outPath, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", outPath, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", outPath)
	}
	return nil
}

// writeResultTables prints one feature table per document, non-empty
// fields only.
func writeResultTables(w io.Writer, results []*extract.Result) error {
	for _, result := range results {
		fmt.Fprintf(w, "Document: %s (type=%s", result.DocumentID, result.DocumentType)
		if result.DocumentDate != "" {
			fmt.Fprintf(w, ", date=%s", result.DocumentDate)
		}
		fmt.Fprintln(w, ")")

		names := make([]string, 0, len(result.Features))
		for name, value := range result.Features {
			if value != nil && value.Raw != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "FEATURE\tVALUE\tTIER")
		for _, name := range names {
			value := result.Features[name]
			fmt.Fprintf(tw, "%s\t%s\t%s\n", name, value.Raw, value.Tier)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}
	return nil
}
