package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/export"
)

var exportFlags struct {
	db  string
	out string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the CSV database as an XLSX workbook",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.db, "db", "", "CSV database path (default: $BRIGHT_DB_PATH)")
	f.StringVarP(&exportFlags.out, "output", "o", "", "Output XLSX path (default: database name with .xlsx)")
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := exportFlags.db
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	outPath := exportFlags.out
	if outPath == "" {
		outPath = strings.TrimSuffix(dbPath, ".csv") + ".xlsx"
	}

	svc := export.NewService(newLogger())
	if err := svc.ExportFile(dbPath, outPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", dbPath, outPath)
	return nil
}
