package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name  string
		field string
		raw   string
		want  string
		keep  bool
	}{
		{"accent folding", "ihc_idh1", "Négatif", "negatif", true},
		{"symbol", "ihc_p53", "+", "positif", true},
		{"molecular synonym", "mol_idh1", "wild-type", "wt", true},
		{"methylation", "mol_mgmt", "méthylation positive", "methyle", true},
		{"sex", "sexe", "Homme", "M", true},
		{"who", "classification_oms", "OMS 2021", "2021", true},
		{"integer passthrough", "ik_clinique", "90", "90", true},
		{"integer leading zero", "ik_clinique", "090", "90", true},
		{"null like", "ihc_idh1", "N/A", "", false},
		{"empty", "ihc_idh1", "  ", "", false},
		{"unknown field passthrough", "mystery", "valeur", "valeur", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := NormalizeValue(tt.field, tt.raw)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateNormalizesAndAccepts(t *testing.T) {
	extractions := map[string]*schema.Value{
		"ihc_idh1": schema.RuleValue("positive", "IDH1 positive", "ihc"),
	}
	Validate(extractions, nil)

	v := extractions["ihc_idh1"]
	assert.Equal(t, "positif", v.Raw)
	assert.True(t, v.VocabValid)
	assert.False(t, v.Flagged)
}

func TestValidateFlagsOutOfVocab(t *testing.T) {
	extractions := map[string]*schema.Value{
		"ihc_idh1": schema.RuleValue("douteux", "", ""),
	}
	Validate(extractions, nil)

	v := extractions["ihc_idh1"]
	assert.False(t, v.VocabValid)
	assert.True(t, v.Flagged)
}

func TestValidateEvolutionLabels(t *testing.T) {
	extractions := map[string]*schema.Value{
		"evol_clinique": schema.RuleValue("P3", "", ""),
	}
	Validate(extractions, nil)
	assert.True(t, extractions["evol_clinique"].VocabValid)

	extractions = map[string]*schema.Value{
		"evol_clinique": schema.RuleValue("progression", "", ""),
	}
	Validate(extractions, nil)
	assert.False(t, extractions["evol_clinique"].VocabValid)
}

func TestValidateMolecularVariants(t *testing.T) {
	extractions := map[string]*schema.Value{
		"mol_idh1": schema.RuleValue("R132H", "", ""),
	}
	Validate(extractions, nil)
	assert.True(t, extractions["mol_idh1"].VocabValid)
}

func TestValidateUnknownField(t *testing.T) {
	extractions := map[string]*schema.Value{
		"no_such_field": schema.RuleValue("x", "", ""),
	}
	Validate(extractions, nil)

	v := extractions["no_such_field"]
	assert.True(t, v.Flagged)
	assert.False(t, v.VocabValid)
}

func TestValidateClearsNullLikes(t *testing.T) {
	extractions := map[string]*schema.Value{
		"ihc_idh1": schema.RuleValue("null", "", ""),
	}
	Validate(extractions, nil)

	require.NotNil(t, extractions["ihc_idh1"])
	assert.Empty(t, extractions["ihc_idh1"].Raw)
	assert.False(t, extractions["ihc_idh1"].Flagged)
}

func TestValidateSkipsNilValues(t *testing.T) {
	extractions := map[string]*schema.Value{"ihc_idh1": nil}
	assert.NotPanics(t, func() { Validate(extractions, nil) })
}
