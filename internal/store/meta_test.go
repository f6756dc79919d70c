package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
)

func TestSaltStoredInMetaSidecar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")

	s1, err := Salt(path)
	require.NoError(t, err)
	require.NotEmpty(t, s1)
	assert.FileExists(t, MetaPath(path))

	s2, err := Salt(path)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}

func TestSaltPrefersLegacyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	require.NoError(t, os.WriteFile(pseudo.SaltSidecarPath(path), []byte("legacysalt"), 0o600))

	s, err := Salt(path)
	require.NoError(t, err)
	assert.Equal(t, "legacysalt", s)

	// No sqlite sidecar gets created when the plain file wins.
	_, err = os.Stat(MetaPath(path))
	assert.True(t, os.IsNotExist(err))
}

func TestRecordIntake(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")

	rows := []Row{
		{DID: 0, Fields: map[string]string{"PID": "1", "SOURCE_FILE": "a.pdf"}},
		{DID: 1, Fields: map[string]string{"PID": "2", "SOURCE_FILE": "b.pdf"}},
	}
	require.NoError(t, RecordIntake(path, rows))

	meta, err := OpenMeta(path)
	require.NoError(t, err)
	defer meta.Close()

	var n int
	require.NoError(t, meta.QueryRow(`SELECT COUNT(*) FROM intake_log`).Scan(&n))
	assert.Equal(t, 2, n)

	var pid, src string
	require.NoError(t, meta.QueryRow(
		`SELECT pid, source_file FROM intake_log WHERE did = 1`).Scan(&pid, &src))
	assert.Equal(t, "2", pid)
	assert.Equal(t, "b.pdf", src)
}

func TestRecordIntakeEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	require.NoError(t, RecordIntake(path, nil))

	// No journal touched for an empty batch.
	_, err := os.Stat(MetaPath(path))
	assert.True(t, os.IsNotExist(err))
}
