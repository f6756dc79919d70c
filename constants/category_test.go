package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  DocumentType
		known bool
	}{
		{"canonical type", "anapath", Anapath, true},
		{"case and spacing", "  RCP ", RCP, true},
		{"synonym consult", "consult", Consultation, true},
		{"synonym biopsie", "biopsie", Anapath, true},
		{"synonym ngs", "NGS", MolecularReport, true},
		{"synonym irm", "IRM", Radiology, true},
		{"synonym scanner", "scanner", Radiology, true},
		{"synonym bio mol", "biologie moleculaire", MolecularReport, true},
		{"unknown falls back", "lettre de sortie", Consultation, false},
		{"empty falls back", "", Consultation, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := Canonicalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.known, known)
		})
	}
}

func TestAsStringSlice(t *testing.T) {
	assert.Equal(t,
		[]string{"consultation", "anapath", "rcp", "molecular_report", "radiology"},
		AsStringSlice())
}

func TestNormalizeExt(t *testing.T) {
	assert.Equal(t, "pdf", NormalizeExt(".PDF"))
	assert.Equal(t, "pdf", NormalizeExt("pdf"))
	assert.Equal(t, "", NormalizeExt("."))
	assert.Equal(t, "", NormalizeExt(""))
}
