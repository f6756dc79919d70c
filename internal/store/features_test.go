package store

import (
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func TestExtendedColumns(t *testing.T) {
	cols := ExtendedColumns()

	// Default document columns come first, then extraction metadata.
	assert.Equal(t, DefaultColumns, cols[:len(DefaultColumns)])
	assert.Equal(t, MetaColumns, cols[len(DefaultColumns):len(DefaultColumns)+len(MetaColumns)])

	features := cols[len(DefaultColumns)+len(MetaColumns):]
	assert.Len(t, features, len(schema.AllFieldNames()))
	assert.True(t, sort.StringsAreSorted(features))
	assert.Contains(t, features, "ihc_idh1")
	assert.Contains(t, features, "grade")
}

func TestResultToRow(t *testing.T) {
	result := extract.NewResult("doc.pdf")
	result.PatientID = "42"
	result.DocumentType = "anapath"
	result.DocumentDate = "12/03/2021"
	result.Tier1Count = 3
	result.Tier2Count = 1
	result.FlaggedForReview = []string{"grade"}
	result.ElapsedMS = 12.345
	result.Features["ihc_idh1"] = schema.RuleValue("positif", "IDH1 positif", "ihc")
	result.Features["grade"] = nil

	row := ResultToRow(result)

	assert.Equal(t, "anapath", row["DOC_TYPE"])
	assert.Equal(t, "12/03/2021", row["DOC_DATE"])
	assert.Equal(t, "3", row["EXTRACTION_TIER1"])
	assert.Equal(t, "1", row["EXTRACTION_TIER2"])
	assert.Equal(t, "1", row["EXTRACTION_FLAGGED"])
	assert.Equal(t, "12.3", row["EXTRACTION_TIME_MS"])

	assert.Equal(t, "positif", row["ihc_idh1"])
	assert.Equal(t, "", row["grade"])
	assert.Equal(t, "", row["ihc_atrx"])
}

func TestExtendExistingDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patients.csv")
	_, err := InitDB(path, nil)
	require.NoError(t, err)

	db, err := ExtendExistingDB(path)
	require.NoError(t, err)
	assert.Equal(t, ExtendedColumns(), db.Columns)

	// The extended schema persists.
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ExtendedColumns(), loaded.Columns)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "abcde", truncateRunes("abcdefgh", 5))
	assert.Equal(t, "éèê", truncateRunes("éèêë", 3))
}
