package pseudo

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestGenerateSalt(t *testing.T) {
	s1, err := GenerateSalt()
	require.NoError(t, err)
	s2, err := GenerateSalt()
	require.NoError(t, err)

	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
}

func TestGetOrCreateSaltFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "patients.csv")

	s1, err := GetOrCreateSaltFile(dbPath)
	require.NoError(t, err)
	require.NotEmpty(t, s1)

	// Second call reads the sidecar back unchanged.
	s2, err := GetOrCreateSaltFile(dbPath)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)

	assert.FileExists(t, SaltSidecarPath(dbPath))
}

func TestGetOrCreateSalt(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "meta.db"))
	require.NoError(t, err)
	defer db.Close()

	s1, err := GetOrCreateSalt(db)
	require.NoError(t, err)
	require.NotEmpty(t, s1)

	s2, err := GetOrCreateSalt(db)
	require.NoError(t, err)
	assert.Equal(t, s1, s2)
}
