package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain integer", "42", "42"},
		{"float like", "42.0", "42"},
		{"whitespace", "  7 ", "7"},
		{"alphanumeric kept", "P0012", "P0012"},
		{"true float kept", "1.5", "1.5"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePID(tt.in))
		})
	}
}

func TestInitDBAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")

	db, err := InitDB(path, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultColumns, db.Columns)

	// Init provisions the salt alongside the CSV.
	_, err = Salt(path)
	require.NoError(t, err)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultColumns, loaded.Columns)
	assert.Empty(t, loaded.Rows)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "DID,PID,"))
}

func TestSaveAndLoadRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	db := &Database{
		Path:    path,
		Columns: DefaultColumns,
		Rows: []Row{
			{DID: 1, Fields: map[string]string{"PID": "2", "SOURCE_FILE": "b.pdf", "ORDER": "1"}},
			{DID: 0, Fields: map[string]string{"PID": "1.0", "SOURCE_FILE": "a.pdf", "ORDER": "1"}},
		},
	}
	require.NoError(t, Save(db, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Len(t, loaded.Rows, 2)

	// Rows come back sorted by DID and PIDs are normalized on load.
	assert.Equal(t, 0, loaded.Rows[0].DID)
	assert.Equal(t, "1", loaded.Rows[0].Fields["PID"])
	assert.Equal(t, "a.pdf", loaded.Rows[0].Fields["SOURCE_FILE"])
	assert.Equal(t, "2", loaded.Rows[1].Fields["PID"])

	// The atomic write leaves no temp file behind.
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadMissingDatabase(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestLoadRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("PID,ORDER\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first column must be DID")
}

func TestAddColumns(t *testing.T) {
	db := &Database{Columns: []string{"PID", "ORDER"}}
	db.AddColumns("DOC_TYPE", "PID", "DOC_DATE")
	assert.Equal(t, []string{"PID", "ORDER", "DOC_TYPE", "DOC_DATE"}, db.Columns)
}

func newRow(pid, src, order string) map[string]string {
	return map[string]string{
		"PID": pid, "SOURCE_FILE": src, "DOCUMENT": "", "PSEUDO": "", "ORDER": order,
	}
}

func ordersByPID(db *Database, pid string) map[string]string {
	out := map[string]string{}
	for _, r := range db.Rows {
		if r.Fields["PID"] == pid {
			out[r.Fields["SOURCE_FILE"]] = r.Fields["ORDER"]
		}
	}
	return out
}

func TestInsertDocumentsNewPatient(t *testing.T) {
	db := &Database{Columns: DefaultColumns}

	// ORDER on a brand-new PID is ignored, rows get 1..N in input order.
	err := InsertDocumentsWithOrder(db, []map[string]string{
		newRow("1", "first.pdf", "9"),
		newRow("1", "second.pdf", ""),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"first.pdf": "1", "second.pdf": "2"}, ordersByPID(db, "1"))
	assert.Equal(t, 0, db.Rows[0].DID)
	assert.Equal(t, 1, db.Rows[1].DID)
}

func TestInsertDocumentsSpliceExisting(t *testing.T) {
	db := &Database{Columns: DefaultColumns}
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{
		newRow("1", "a.pdf", ""),
		newRow("1", "b.pdf", ""),
	}))

	// Insert between a and b, then append at the tail.
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{
		newRow("1", "between.pdf", "2"),
	}))
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{
		newRow("1", "tail.pdf", "4"),
	}))

	assert.Equal(t, map[string]string{
		"a.pdf":       "1",
		"between.pdf": "2",
		"b.pdf":       "3",
		"tail.pdf":    "4",
	}, ordersByPID(db, "1"))
}

func TestInsertDocumentsOrderOutOfRange(t *testing.T) {
	db := &Database{Columns: DefaultColumns}
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "a.pdf", "")}))

	err := InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "b.pdf", "5")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid ORDER for PID=1: 5, must be between 1 and 2")

	err = InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "b.pdf", "0")})
	require.Error(t, err)
}

func TestInsertDocumentsOrderRequiredForExistingPID(t *testing.T) {
	db := &Database{Columns: DefaultColumns}
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "a.pdf", "")}))

	err := InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "b.pdf", "")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ORDER is required when PID already exists")
}

func TestInsertDocumentsRejectsCorruptOrder(t *testing.T) {
	db := &Database{
		Columns: DefaultColumns,
		Rows: []Row{
			{DID: 0, Fields: map[string]string{"PID": "1", "SOURCE_FILE": "a.pdf", "DOCUMENT": "", "PSEUDO": "", "ORDER": ""}},
		},
	}
	err := InsertDocumentsWithOrder(db, []map[string]string{newRow("1", "b.pdf", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB has missing ORDER values for PID=1")
}

func TestInsertDocumentsMissingColumns(t *testing.T) {
	db := &Database{Columns: DefaultColumns}
	err := InsertDocumentsWithOrder(db, []map[string]string{{"PID": "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required DB columns")
}

func TestInsertDocumentsNormalizesPID(t *testing.T) {
	db := &Database{Columns: DefaultColumns}
	require.NoError(t, InsertDocumentsWithOrder(db, []map[string]string{newRow("3.0", "a.pdf", "")}))
	assert.Equal(t, "3", db.Rows[0].Fields["PID"])
}

func TestLockLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")

	l, err := AcquireLock(path)
	require.NoError(t, err)
	assert.FileExists(t, path+".lock")

	l.Release()
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))

	// Released locks can be taken again, and double release is harmless.
	l2, err := AcquireLock(path)
	require.NoError(t, err)
	l2.Release()
	l2.Release()
}

func TestAppendRowsLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	_, err := InitDB(path, nil)
	require.NoError(t, err)

	require.NoError(t, AppendRowsLocked(path, []map[string]string{
		newRow("1", "a.pdf", ""),
		newRow("2", "b.pdf", ""),
	}))

	db, err := Load(path)
	require.NoError(t, err)
	require.Len(t, db.Rows, 2)
	assert.Equal(t, "1", db.Rows[0].Fields["ORDER"])

	// Lock released after the write.
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}
