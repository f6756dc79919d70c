package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/ingest"
)

var scanFlags struct {
	exts       []string
	showDupes  bool
	skipHidden bool
}

var scanCmd = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Scan a directory for report files",
	Long: `Walk a directory tree and list the report files found, hashing each one
to flag duplicates. Useful before a bulk commit to see what a folder of
exported reports actually contains.`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	f := scanCmd.Flags()
	f.StringSliceVar(&scanFlags.exts, "ext", []string{"pdf"}, "File extensions to include")
	f.BoolVar(&scanFlags.showDupes, "duplicates", false, "Only list duplicated files")
	f.BoolVar(&scanFlags.skipHidden, "skip-hidden", true, "Skip hidden files and directories")
}

func runScan(cmd *cobra.Command, args []string) error {
	results, stats, err := ingest.ScanDirectory(args[0], scanFlags.exts, scanFlags.skipHidden)
	if err != nil {
		return err
	}

	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "ERROR  %s: %s\n", r.Path, r.Err)
			continue
		}
		if scanFlags.showDupes && !r.Deduplicated {
			continue
		}
		marker := " "
		if r.Deduplicated {
			marker = "D"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s  %s\n", marker, r.HashHex[:12], r.Path)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d files, %d duplicates, %d errors\n",
		stats.Matched, stats.Deduplicated, stats.Failed)
	return nil
}
