package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/common"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

var commitFlags struct {
	db    string
	pid   string
	order int
}

var commitCmd = &cobra.Command{
	Use:   "commit <pdf>...",
	Short: "Commit PDF reports to the patient database",
	Long: `Commit one or more PDF reports for a single patient: extract the text,
pseudonymize it through the NER service, and append the documents to the
CSV database under a lock.

Committing requires a reachable pseudonymization service; no raw document
enters the database without a pseudonymized counterpart.

ORDER is only needed when the patient already has documents: it places the
first committed file in the existing sequence (following files are appended
after it). New patients get ORDER assigned automatically.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCommit,
}

func init() {
	f := commitCmd.Flags()
	f.StringVar(&commitFlags.db, "db", "", "CSV database path (default: $BRIGHT_DB_PATH)")
	f.StringVar(&commitFlags.pid, "pid", "", "Patient identifier (required)")
	f.IntVar(&commitFlags.order, "order", 0, "Position of the first document in the patient sequence")
	_ = commitCmd.MarkFlagRequired("pid")
}

func runCommit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := commitFlags.db
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	logger := newLogger()
	ctx := cmd.Context()

	ner := newNERClient(cfg, logger)
	if !ner.Health(ctx) {
		return fmt.Errorf("pseudonymization service at %s is unavailable, commit refused", cfg.Pseudo.NERBaseURL)
	}

	pid := store.NormalizePID(commitFlags.pid)
	v := common.NewValidator().Field("pid", pid, common.Required, common.PatientID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return err
	}

	committed, err := commitFiles(ctx, cfg, dbPath, ner, pid, commitFlags.order, args, logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Committed %d document(s) for PID=%s to %s\n", committed, pid, dbPath)
	return nil
}

// commitFiles runs the intake sequence used by both the commit and watch
// commands: parallel text extraction, sequential pseudonymization with the
// database salt, then a locked append. firstOrder <= 0 means append at the
// end of the patient sequence.
func commitFiles(ctx context.Context, cfg *common.Config, dbPath string, ner *pseudo.NERClient, pid string, firstOrder int, files []string, logger *slog.Logger) (int, error) {
	ctx = common.WithRequestID(ctx, uuid.NewString())
	ctx = common.WithPatientID(ctx, pid)
	textExtractor := newTextExtractor(cfg, logger)

	if firstOrder <= 0 {
		if db, err := store.Load(dbPath); err == nil {
			existing := 0
			for _, r := range db.Rows {
				if r.Fields["PID"] == pid {
					existing++
				}
			}
			if existing > 0 {
				firstOrder = existing + 1
			}
		}
	}

	texts := make([]string, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(cfg))
	for i, path := range files {
		g.Go(func() error {
			text, err := textExtractor.Extract(gctx, path)
			if err != nil {
				return fmt.Errorf("extract text from %s: %w", path, err)
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	salt, err := store.Salt(dbPath)
	if err != nil {
		return 0, fmt.Errorf("database salt: %w", err)
	}
	pseudonymizer := pseudo.NewPseudonymizer(ner, salt, logger)

	newRows := make([]map[string]string, 0, len(files))
	for i, path := range files {
		pseudoText, err := pseudonymizer.Pseudonymize(ctx, texts[i], pid, cfg.Pseudo.ConsistentAcrossPID)
		if err != nil {
			return 0, fmt.Errorf("pseudonymize %s: %w", path, err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		order := ""
		if firstOrder > 0 {
			order = strconv.Itoa(firstOrder + i)
		}
		newRows = append(newRows, map[string]string{
			"PID":         pid,
			"SOURCE_FILE": abs,
			"DOCUMENT":    texts[i],
			"PSEUDO":      pseudoText,
			"ORDER":       order,
		})
	}

	if err := store.AppendRowsLocked(dbPath, newRows); err != nil {
		return 0, err
	}
	logger.Info("commit.ok",
		"req_id", common.RequestIDFromContext(ctx),
		"db", dbPath, "pid", pid, "documents", len(files))
	return len(files), nil
}
