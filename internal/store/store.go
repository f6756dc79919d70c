// Package store implements the CSV-backed document database: load/save with
// atomic writes, per-patient ORDER semantics, the extended feature schema,
// and spreadsheet export.
package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/common"
)

// DefaultColumns is the minimal database schema. DID is the index column and
// is not listed here.
var DefaultColumns = []string{"PID", "SOURCE_FILE", "DOCUMENT", "PSEUDO", "ORDER"}

// Row is one document record. ORDER lives in Fields as a decimal string;
// empty means unassigned.
type Row struct {
	DID    int
	Fields map[string]string
}

// Database is an in-memory view of one CSV database file.
type Database struct {
	Path    string
	Columns []string
	Rows    []Row
}

// NormalizePID returns the canonical patient id string. Collapses float-like
// integers so "1", "1.0" and 1 all map to "1".
func NormalizePID(pid string) string {
	s := strings.TrimSpace(pid)
	if s == "" {
		return ""
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return s
}

func (db *Database) nextDID() int {
	next := 0
	for _, r := range db.Rows {
		if r.DID >= next {
			next = r.DID + 1
		}
	}
	return next
}

func (db *Database) hasColumn(name string) bool {
	for _, c := range db.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// AddColumns appends any missing columns to the schema, with empty values in
// existing rows.
func (db *Database) AddColumns(names ...string) {
	for _, name := range names {
		if !db.hasColumn(name) {
			db.Columns = append(db.Columns, name)
		}
	}
}

// InitDB creates an empty CSV database at path with the given columns
// (DefaultColumns when nil) and provisions its pseudonymization salt.
func InitDB(path string, columns []string) (*Database, error) {
	if columns == nil {
		columns = DefaultColumns
	}
	db := &Database{Path: path, Columns: append([]string(nil), columns...)}
	if err := Save(db, path); err != nil {
		return nil, err
	}
	if _, err := Salt(path); err != nil {
		return nil, err
	}
	return db, nil
}

// Load reads a CSV database. PIDs are normalized on load.
func Load(path string) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NotFoundError("database not found: %s", path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read database %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("database %s has no header", path)
	}

	header := records[0]
	if len(header) == 0 || header[0] != "DID" {
		return nil, fmt.Errorf("database %s: first column must be DID, got %q", path, header)
	}
	columns := append([]string(nil), header[1:]...)

	db := &Database{Path: path, Columns: columns}
	for i, rec := range records[1:] {
		if len(rec) == 0 {
			continue
		}
		did, err := strconv.Atoi(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, fmt.Errorf("database %s row %d: bad DID %q", path, i+1, rec[0])
		}
		fields := make(map[string]string, len(columns))
		for j, col := range columns {
			if j+1 < len(rec) {
				fields[col] = rec[j+1]
			} else {
				fields[col] = ""
			}
		}
		if _, ok := fields["PID"]; ok {
			fields["PID"] = NormalizePID(fields["PID"])
		}
		db.Rows = append(db.Rows, Row{DID: did, Fields: fields})
	}
	return db, nil
}

// Save writes the database atomically: full write to a temp file in the same
// directory, then rename over the target.
func Save(db *Database, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	header := append([]string{"DID"}, db.Columns...)
	if err := w.Write(header); err != nil {
		f.Close()
		return err
	}

	rows := append([]Row(nil), db.Rows...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].DID < rows[j].DID })
	for _, row := range rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, strconv.Itoa(row.DID))
		for _, col := range db.Columns {
			rec = append(rec, row.Fields[col])
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// AppendRowsLocked inserts new rows with ORDER semantics under the database
// lock file, so concurrent writers serialize.
func AppendRowsLocked(dbPath string, newRows []map[string]string) error {
	if _, err := Salt(dbPath); err != nil {
		return err
	}

	lock, err := AcquireLock(dbPath)
	if err != nil {
		return err
	}
	defer lock.Release()

	db, err := Load(dbPath)
	if err != nil {
		return err
	}
	firstNewDID := db.nextDID()
	if err := InsertDocumentsWithOrder(db, newRows); err != nil {
		return err
	}
	if err := common.WrapError(Save(db, dbPath), "save database"); err != nil {
		return err
	}

	var added []Row
	for _, r := range db.Rows {
		if r.DID >= firstNewDID {
			added = append(added, r)
		}
	}
	return RecordIntake(dbPath, added)
}
