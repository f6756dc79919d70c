// Package export produces XLSX workbooks from a CSV document database, for
// clinicians who review the extracted features in a spreadsheet.
package export

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/store"
)

const sheetName = "Documents"

// Excel caps a cell at 32767 characters; longer values make excelize fail.
const maxCellChars = 32767

func truncateCell(v string) string {
	runes := []rune(v)
	if len(runes) <= maxCellChars {
		return v
	}
	return string(runes[:maxCellChars])
}

// Service turns a document database into XLSX bytes.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// ExportXLSX renders the full database as a single-sheet workbook. Rows come
// out sorted by (PID, ORDER, DID) so one patient's documents read in
// chronological order.
func (s *Service) ExportXLSX(db *store.Database) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	if index, _ := f.GetSheetIndex(sheetName); index == -1 {
		if _, err := f.NewSheet(sheetName); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(activeIndex)
	if defaultIndex, _ := f.GetSheetIndex("Sheet1"); defaultIndex != -1 && sheetName != "Sheet1" {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := append([]string{"DID"}, db.Columns...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	rows := append([]store.Row(nil), db.Rows...)
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Fields["PID"] != b.Fields["PID"] {
			return a.Fields["PID"] < b.Fields["PID"]
		}
		ao, _ := strconv.Atoi(a.Fields["ORDER"])
		bo, _ := strconv.Atoi(b.Fields["ORDER"])
		if ao != bo {
			return ao < bo
		}
		return a.DID < b.DID
	})

	for rowIdx, r := range rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, rowIdx+2)
			_ = f.SetCellValue(sheetName, cell, v)
		}
		write(1, r.DID)
		for c, col := range db.Columns {
			write(c+2, truncateCell(r.Fields[col]))
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)  // DID
	_ = f.SetColWidth(sheetName, "B", "B", 12) // PID
	_ = f.SetColWidth(sheetName, "C", "D", 40) // source file, document preview

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(rows),
		"columns", len(headers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// ExportFile writes the workbook for the database at dbPath to outPath.
func (s *Service) ExportFile(dbPath, outPath string) error {
	db, err := store.Load(dbPath)
	if err != nil {
		return err
	}
	data, err := s.ExportXLSX(db)
	if err != nil {
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
