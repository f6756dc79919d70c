package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anapathSample = "Compte rendu anatomopathologique. " +
	"Immunohistochimie : IDH1 : positif, ATRX : maintenu."

func writeSampleReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.txt")
	require.NoError(t, os.WriteFile(path, []byte(anapathSample), 0o644))
	return path
}

func resetExtractFlags() {
	extractFlags.pid = ""
	extractFlags.outDir = ""
	extractFlags.format = "json"
	extractFlags.noLLM = false
}

func TestExtractNoLLMSkipsSecondTier(t *testing.T) {
	t.Setenv("BRIGHT_USE_LLM", "true")
	resetExtractFlags()
	extractFlags.noLLM = true

	var out bytes.Buffer
	extractCmd.SetOut(&out)
	extractCmd.SetContext(context.Background())

	require.NoError(t, runExtract(extractCmd, []string{writeSampleReport(t)}))

	assert.Contains(t, out.String(), "Tier 2 (LLM) skipped: LLM extraction disabled.")
	assert.Contains(t, out.String(), `"ihc_idh1"`)
}

func TestExtractTableOutput(t *testing.T) {
	t.Setenv("BRIGHT_USE_LLM", "false")
	resetExtractFlags()
	extractFlags.format = "table"

	var out bytes.Buffer
	extractCmd.SetOut(&out)
	extractCmd.SetContext(context.Background())

	require.NoError(t, runExtract(extractCmd, []string{writeSampleReport(t)}))

	assert.Contains(t, out.String(), "Document: report.txt (type=anapath")
	assert.Contains(t, out.String(), "FEATURE")
	assert.Contains(t, out.String(), "ihc_idh1")
	assert.Contains(t, out.String(), "positif")
	assert.NotContains(t, out.String(), "{")
}

func TestExtractRejectsUnknownFormat(t *testing.T) {
	resetExtractFlags()
	extractFlags.format = "yaml"

	extractCmd.SetContext(context.Background())
	err := runExtract(extractCmd, []string{"whatever.txt"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}
