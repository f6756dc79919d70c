package main

import (
	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/console"
)

var consoleFlags struct {
	db string
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive document intake console",
	Long: `Open the terminal intake console: pick or create a CSV database, queue
PDF reports with their PID and ORDER, then commit them through text
extraction and pseudonymization.`,
	RunE: runConsole,
}

func init() {
	consoleCmd.Flags().StringVar(&consoleFlags.db, "db", "", "CSV database path (default: $BRIGHT_DB_PATH)")
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := consoleFlags.db
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	logger := newLogger()

	ner := newNERClient(cfg, logger)
	deps := console.Deps{
		Extractor:       newTextExtractor(cfg, logger),
		NER:             ner,
		PseudoAvailable: ner.Health(cmd.Context()),
		Logger:          logger,
	}
	return console.Run(deps, dbPath)
}
