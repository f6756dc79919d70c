package store

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Extraction metadata columns stored alongside the feature values.
var MetaColumns = []string{
	"DOC_TYPE",
	"DOC_DATE",
	"EXTRACTION_TIER1",
	"EXTRACTION_TIER2",
	"EXTRACTION_FLAGGED",
	"EXTRACTION_TIME_MS",
}

// FeatureColumns returns all feature field names as database columns, sorted.
func FeatureColumns() []string {
	names := schema.AllFieldNames()
	sort.Strings(names)
	return names
}

// ExtendedColumns returns the full schema: default columns, extraction
// metadata, then every feature column.
func ExtendedColumns() []string {
	cols := append([]string(nil), DefaultColumns...)
	cols = append(cols, MetaColumns...)
	cols = append(cols, FeatureColumns()...)
	return cols
}

// ResultToRow flattens an extraction result into column values. Standard
// document columns are left empty for the caller to fill.
func ResultToRow(result *extract.Result) map[string]string {
	row := map[string]string{
		"DOC_TYPE":           result.DocumentType,
		"DOC_DATE":           result.DocumentDate,
		"EXTRACTION_TIER1":   strconv.Itoa(result.Tier1Count),
		"EXTRACTION_TIER2":   strconv.Itoa(result.Tier2Count),
		"EXTRACTION_FLAGGED": strconv.Itoa(len(result.FlaggedForReview)),
		"EXTRACTION_TIME_MS": strconv.FormatFloat(result.ElapsedMS, 'f', 1, 64),
	}
	for _, name := range FeatureColumns() {
		if v, ok := result.Features[name]; ok && v != nil {
			row[name] = v.Raw
		} else {
			row[name] = ""
		}
	}
	return row
}

// InitExtendedDB creates a database carrying the full feature schema.
func InitExtendedDB(path string) (*Database, error) {
	return InitDB(path, ExtendedColumns())
}

// ExtendExistingDB adds any missing metadata and feature columns to an
// existing database and saves it back.
func ExtendExistingDB(dbPath string) (*Database, error) {
	db, err := Load(dbPath)
	if err != nil {
		return nil, err
	}
	db.AddColumns(MetaColumns...)
	db.AddColumns(FeatureColumns()...)
	if err := Save(db, dbPath); err != nil {
		return nil, err
	}
	return db, nil
}

// documentPreviewChars bounds the stored raw text reference.
const documentPreviewChars = 500

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// ExtractAndStore runs the pipeline on one document and appends the result
// to the database, creating or extending the schema as needed. The new row
// is placed at the end of the patient's sequence.
func ExtractAndStore(ctx context.Context, dbPath, text, documentID, patientID string, p *pipeline.Pipeline) (*extract.Result, error) {
	if p == nil {
		return nil, fmt.Errorf("pipeline is required")
	}

	result := p.ExtractDocument(ctx, text, documentID, patientID)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		if _, err := InitExtendedDB(dbPath); err != nil {
			return nil, err
		}
	}

	lock, err := AcquireLock(dbPath)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	db, err := Load(dbPath)
	if err != nil {
		return nil, err
	}
	db.AddColumns(MetaColumns...)
	db.AddColumns(FeatureColumns()...)

	row := ResultToRow(result)
	row["PID"] = NormalizePID(patientID)
	row["SOURCE_FILE"] = documentID
	row["DOCUMENT"] = truncateRunes(text, documentPreviewChars)
	row["PSEUDO"] = ""

	// Append at the end of this patient's sequence.
	seqLen := 0
	for _, r := range db.Rows {
		if r.Fields["PID"] == row["PID"] {
			seqLen++
		}
	}
	row["ORDER"] = strconv.Itoa(seqLen + 1)

	if err := InsertDocumentsWithOrder(db, []map[string]string{row}); err != nil {
		return nil, err
	}
	if err := Save(db, dbPath); err != nil {
		return nil, err
	}
	return result, nil
}
