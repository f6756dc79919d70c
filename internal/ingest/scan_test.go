package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestScanDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.pdf", "report a")
	writeFile(t, root, "sub/b.pdf", "report b")
	writeFile(t, root, "notes.txt", "ignored")

	results, stats, err := ScanDirectory(root, nil, false)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, uint32(2), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Zero(t, stats.Deduplicated)
	assert.Zero(t, stats.Failed)

	for _, r := range results {
		assert.Len(t, r.HashHex, 64)
		assert.Empty(t, r.Err)
		assert.False(t, r.Deduplicated)
	}
}

func TestScanDirectoryDeduplicates(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.pdf", "same bytes")
	writeFile(t, root, "copy/a_again.pdf", "same bytes")

	results, stats, err := ScanDirectory(root, nil, false)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Equal(t, results[0].HashHex, results[1].HashHex)

	// The second occurrence carries the duplicate flag.
	dups := 0
	for _, r := range results {
		if r.Deduplicated {
			dups++
		}
	}
	assert.Equal(t, 1, dups)
}

func TestScanDirectorySkipsHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".hidden.pdf", "x")
	writeFile(t, root, ".trash/c.pdf", "x")
	writeFile(t, root, "visible.pdf", "x")

	results, _, err := ScanDirectory(root, nil, true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "visible.pdf", filepath.Base(results[0].Path))
}

func TestScanDirectoryCustomExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.PDF", "x")
	writeFile(t, root, "b.txt", "y")

	// Extension match is case-insensitive and tolerates a leading dot.
	results, _, err := ScanDirectory(root, []string{".TXT"}, false)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b.txt", filepath.Base(results[0].Path))
}

func TestScanDirectoryEmptyRoot(t *testing.T) {
	_, _, err := ScanDirectory("  ", nil, false)
	assert.Error(t, err)
}

func TestAllowed(t *testing.T) {
	exts := map[string]struct{}{"pdf": {}}
	assert.True(t, allowed("/inbox/report.pdf", exts))
	assert.True(t, allowed("/inbox/report.PDF", exts))
	assert.False(t, allowed("/inbox/report.txt", exts))
	assert.False(t, allowed("/inbox/noext", exts))
}
