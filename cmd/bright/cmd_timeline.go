package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/aggregate"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

var timelineFlags struct {
	db  string
	pid string
	out string
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Build the longitudinal feature timeline for a patient",
	Long: `Build a per-patient timeline: run feature extraction over the patient's
stored documents, expand multi-event rows, then aggregate values
chronologically (demographics persist, specimen findings follow surgeries,
clinical state carries forward until restated).

Documents are read from the CSV database in their PID ORDER sequence, using
the pseudonymized text when present.`,
	RunE: runTimeline,
}

func init() {
	f := timelineCmd.Flags()
	f.StringVar(&timelineFlags.db, "db", "", "CSV database path (default: $BRIGHT_DB_PATH)")
	f.StringVar(&timelineFlags.pid, "pid", "", "Patient identifier (required)")
	f.StringVarP(&timelineFlags.out, "output", "o", "", "Output CSV path (default: timeline_<pid>.csv)")
	_ = timelineCmd.MarkFlagRequired("pid")
}

func runTimeline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dbPath := timelineFlags.db
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}
	logger := newLogger()
	ctx := cmd.Context()

	db, err := store.Load(dbPath)
	if err != nil {
		return fmt.Errorf("load database: %w", err)
	}

	pid := store.NormalizePID(timelineFlags.pid)
	type storedDoc struct {
		order int
		did   int
		text  string
	}
	var stored []storedDoc
	for _, r := range db.Rows {
		if r.Fields["PID"] != pid {
			continue
		}
		text := r.Fields["PSEUDO"]
		if text == "" {
			text = r.Fields["DOCUMENT"]
		}
		order, _ := strconv.Atoi(r.Fields["ORDER"])
		stored = append(stored, storedDoc{order: order, did: r.DID, text: text})
	}
	if len(stored) == 0 {
		return fmt.Errorf("no documents found for PID=%s in %s", pid, dbPath)
	}
	sort.Slice(stored, func(i, j int) bool {
		if stored[i].order != stored[j].order {
			return stored[i].order < stored[j].order
		}
		return stored[i].did < stored[j].did
	})

	docs := make([]aggregate.PatientDocument, 0, len(stored))
	for _, d := range stored {
		docs = append(docs, aggregate.PatientDocument{
			Text:       d.text,
			DocumentID: fmt.Sprintf("did_%d", d.did),
		})
	}

	p := newPipeline(cfg, logger)
	rows := aggregate.BuildPatientTimeline(ctx, pid, docs, p, logger)

	outPath := timelineFlags.out
	if outPath == "" {
		outPath = fmt.Sprintf("timeline_%s.csv", pid)
	}
	if err := writeTimelineCSV(outPath, rows); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d timeline rows to %s\n", len(rows), outPath)
	return nil
}

func writeTimelineCSV(path string, rows []aggregate.TimelineRow) error {
	columns := aggregate.TimelineColumns(rows)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return err
	}
	for _, row := range rows {
		record := make([]string, len(columns))
		for i, col := range columns {
			switch col {
			case "_patient_id":
				record[i] = row.PatientID
			case "_document_id":
				record[i] = row.DocumentID
			case "_document_type":
				record[i] = row.DocumentType
			case "_document_date":
				record[i] = row.DocumentDate
			default:
				record[i] = row.Fields[col]
			}
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
