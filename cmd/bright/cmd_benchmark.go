package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/bench"
)

var benchmarkFlags struct {
	gold string
	out  string
}

var benchmarkCmd = &cobra.Command{
	Use:   "benchmark",
	Short: "Evaluate extraction against gold standard annotations",
	Long: `Run the extraction pipeline over a directory of gold standard documents
and score the output per feature: true positives, hallucinations, omissions
and alterations, plus precision, recall and error rates.

Writes benchmark_metrics.csv and error_analysis.csv to the output directory.`,
	RunE: runBenchmark,
}

func init() {
	f := benchmarkCmd.Flags()
	f.StringVar(&benchmarkFlags.gold, "gold", "", "Directory of gold standard JSON documents (required)")
	f.StringVarP(&benchmarkFlags.out, "output", "o", "benchmark_results", "Output directory for result CSVs")
	_ = benchmarkCmd.MarkFlagRequired("gold")
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger()

	p := newPipeline(cfg, logger)
	runner := bench.NewRunner(p, logger)
	metrics, err := runner.Run(cmd.Context(), benchmarkFlags.gold, benchmarkFlags.out)
	if err != nil {
		return err
	}

	for _, m := range metrics {
		if m.Feature != "OVERALL" {
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(),
			"OVERALL  precision=%.3f recall=%.3f f1=%.3f hallucination=%.3f omission=%.3f alteration=%.3f\n",
			m.Precision, m.Recall, m.F1, m.HallucinationRate, m.OmissionRate, m.AlterationRate)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", benchmarkFlags.out)
	return nil
}
