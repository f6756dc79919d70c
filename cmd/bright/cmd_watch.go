package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/ingest"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

var watchFlags struct {
	db          string
	pid         string
	initialScan bool
	debounce    time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch <dir>...",
	Short: "Watch inbox directories and commit new PDF reports",
	Long: `Watch one or more inbox directories and commit every PDF that appears:
text extraction, pseudonymization and a locked database append.

The patient identifier for each file is the name of its parent directory,
so an inbox laid out as inbox/<pid>/report.pdf routes documents to the
right patient. Use --pid to force a single patient instead.

Runs until interrupted.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.db, "db", "", "CSV database path (default: $BRIGHT_DB_PATH)")
	f.StringVar(&watchFlags.pid, "pid", "", "Commit every file under this patient identifier")
	f.BoolVar(&watchFlags.initialScan, "initial-scan", false, "Also commit PDFs already present under the roots")
	f.DurationVar(&watchFlags.debounce, "debounce", 2*time.Second, "Quiet period before a changed file is committed")
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := watchFlags.db
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	logger := newLogger()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ner := newNERClient(cfg, logger)
	if !ner.Health(ctx) {
		return fmt.Errorf("pseudonymization service at %s is unavailable, watch refused", cfg.Pseudo.NERBaseURL)
	}

	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       args,
		InitialScan: watchFlags.initialScan,
		Debounce:    watchFlags.debounce,
	})
	if err != nil {
		return err
	}
	logger.Info("watch.started", "roots", args, "db", dbPath)

	for {
		select {
		case <-ctx.Done():
			logger.Info("watch.stopped")
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				logger.Error("watch.error", "error", err)
			}
		case path, ok := <-events:
			if !ok {
				return nil
			}
			pid := watchFlags.pid
			if pid == "" {
				pid = store.NormalizePID(filepath.Base(filepath.Dir(path)))
			}
			if _, err := commitFiles(ctx, cfg, dbPath, ner, pid, 0, []string{path}, logger); err != nil {
				logger.Error("watch.commit_failed", "file", path, "pid", pid, "error", err)
				continue
			}
			logger.Info("watch.committed", "file", path, "pid", pid)
		}
	}
}
