package bench

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
)

// ErrorRow is one entry of the error analysis report.
type ErrorRow struct {
	DocumentID  string
	PatientID   string
	Feature     string
	ErrorType   string // hallucination, omission, alteration
	Predicted   string
	GroundTruth string
}

// Runner evaluates a pipeline against a gold standard directory.
type Runner struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewRunner(p *pipeline.Pipeline, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{pipeline: p, logger: logger}
}

// Run extracts every gold document, scores the predictions, and writes
// benchmark_metrics.csv and error_analysis.csv into outDir. The error
// analysis file is written even when empty.
func (r *Runner) Run(ctx context.Context, goldDir, outDir string) ([]FeatureMetrics, error) {
	start := time.Now()

	docs, err := LoadGoldStandard(goldDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}

	var perDocument []map[string]Counts
	var errorRows []ErrorRow

	for _, gold := range docs {
		result := r.pipeline.ExtractDocument(ctx, gold.RawText, gold.DocumentID, gold.PatientID)

		counts := PerFeatureCounts(result.Features, gold)
		perDocument = append(perDocument, counts)

		for feat, c := range counts {
			if c.FPHallucination == 0 && c.FNOmission == 0 && c.Alteration == 0 {
				continue
			}
			errorType := "alteration"
			if c.FPHallucination > 0 {
				errorType = "hallucination"
			} else if c.FNOmission > 0 {
				errorType = "omission"
			}

			predicted := ""
			if v, ok := result.Features[feat]; ok && v != nil {
				predicted = v.Raw
			}
			groundTruth := ""
			if ann, ok := gold.Annotations[feat]; ok {
				groundTruth = ann.Value
			}
			errorRows = append(errorRows, ErrorRow{
				DocumentID:  gold.DocumentID,
				PatientID:   gold.PatientID,
				Feature:     feat,
				ErrorType:   errorType,
				Predicted:   predicted,
				GroundTruth: groundTruth,
			})
		}
	}

	metrics := AggregateMetrics(perDocument)

	if err := writeMetricsCSV(filepath.Join(outDir, "benchmark_metrics.csv"), metrics); err != nil {
		return nil, err
	}
	if err := writeErrorCSV(filepath.Join(outDir, "error_analysis.csv"), errorRows); err != nil {
		return nil, err
	}

	r.logger.InfoContext(ctx, "bench.run.ok",
		"documents", len(docs),
		"features", len(metrics)-1,
		"errors", len(errorRows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return metrics, nil
}

func formatRate(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}

func writeMetricsCSV(path string, metrics []FeatureMetrics) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		"feature", "TP", "TN", "FP", "FN",
		"hallucinations", "omissions", "alterations",
		"Precision", "Recall", "F1", "Accuracy",
		"Hallucination_Rate", "Omission_Rate", "Alteration_Rate",
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, m := range metrics {
		rec := []string{
			m.Feature,
			strconv.Itoa(m.TP), strconv.Itoa(m.TN), strconv.Itoa(m.FP), strconv.Itoa(m.FN),
			strconv.Itoa(m.Hallucinations), strconv.Itoa(m.Omissions), strconv.Itoa(m.Alterations),
			formatRate(m.Precision), formatRate(m.Recall), formatRate(m.F1), formatRate(m.Accuracy),
			formatRate(m.HallucinationRate), formatRate(m.OmissionRate), formatRate(m.AlterationRate),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func writeErrorCSV(path string, rows []ErrorRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"document_id", "patient_id", "feature", "error_type", "predicted", "ground_truth"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		rec := []string{row.DocumentID, row.PatientID, row.Feature, row.ErrorType, row.Predicted, row.GroundTruth}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
