package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractDates(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"dmy slash", "opérée le 12/03/2021", []string{"12/03/2021"}},
		{"dmy dots", "IRM du 3.7.2019", []string{"03/07/2019"}},
		{"ymd", "prélèvement du 2021-03-12", []string{"12/03/2021"}},
		{"full french", "vu le 5 mars 2020 en consultation", []string{"05/03/2020"}},
		{"month abbrev", "chimiothérapie débutée en janv-21", []string{"01/01/2021"}},
		{"bare year", "épilepsie connue depuis 2019", []string{"01/01/2019"}},
		{"multiple sorted", "RCP du 02/02/2022, chirurgie le 15/01/2022", []string{"02/02/2022", "15/01/2022"}},
		{"none", "pas de date dans ce texte", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractDates(tt.text)
			require.Len(t, got, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, got[i].Normalized)
			}
		})
	}
}

func TestExtractDatesSpans(t *testing.T) {
	text := "chirurgie le 12/03/2021."
	got := ExtractDates(text)
	require.Len(t, got, 1)
	assert.Equal(t, "12/03/2021", text[got[0].Start:got[0].End])
	assert.Equal(t, "12/03/2021", got[0].Raw)
}

func TestExtractIHC(t *testing.T) {
	text := "IHC : IDH1 : positif, ATRX : maintenu, p53 négatif. Ki67 : 20%."
	got := ExtractIHC(text)

	require.Contains(t, got, "ihc_idh1")
	assert.Equal(t, "positif", got["ihc_idh1"].Raw)
	assert.Equal(t, 0.9, got["ihc_idh1"].Confidence)

	require.Contains(t, got, "ihc_atrx")
	assert.Equal(t, "maintenu", got["ihc_atrx"].Raw)

	require.Contains(t, got, "ihc_p53")
	assert.Equal(t, "negatif", got["ihc_p53"].Raw)

	require.Contains(t, got, "ihc_ki67")
	assert.Equal(t, "20", got["ihc_ki67"].Raw)
}

func TestExtractIHCFirstMatchWins(t *testing.T) {
	got := ExtractIHC("IDH1 : positif puis contrôle IDH1 : négatif")
	require.Contains(t, got, "ihc_idh1")
	assert.Equal(t, "positif", got["ihc_idh1"].Raw)
}

func TestExtractMolecular(t *testing.T) {
	text := "IDH1 : muté, TERT : wild-type, MGMT : méthylé"
	got := ExtractMolecular(text)

	assert.Equal(t, "mute", got["mol_idh1"].Raw)
	assert.Equal(t, "wt", got["mol_tert"].Raw)
	assert.Equal(t, "methyle", got["mol_mgmt"].Raw)
}

func TestExtractMolecularVariant(t *testing.T) {
	got := ExtractMolecular("IDH1 : R132H")
	require.Contains(t, got, "mol_idh1")
	assert.Equal(t, "mute", got["mol_idh1"].Raw)
}

func TestExtractMolecularNegatedPhrase(t *testing.T) {
	got := ExtractMolecular("Pas de mutation du gène TERT retrouvée.")
	require.Contains(t, got, "mol_tert")
	assert.Equal(t, "wt", got["mol_tert"].Raw)
}

func TestExtractMolecularMutationPhrase(t *testing.T) {
	got := ExtractMolecular("Mutation du promoteur de TERT (C228T).")
	require.Contains(t, got, "mol_tert")
	assert.Equal(t, "mute", got["mol_tert"].Raw)
}

func TestExtractChromosomal(t *testing.T) {
	got := ExtractChromosomal("1p : perte, 19q : délétion, 7p : gain")
	assert.Equal(t, "perte", got["ch1p"].Raw)
	assert.Equal(t, "perte", got["ch19q"].Raw)
	assert.Equal(t, "gain", got["ch7p"].Raw)
}

func TestExtractChromosomalCodeletion(t *testing.T) {
	got := ExtractChromosomal("Présence d'une codélétion 1p/19q complète.")
	assert.Equal(t, "perte", got["ch1p"].Raw)
	assert.Equal(t, "perte", got["ch19q"].Raw)
}

func TestExtractBinary(t *testing.T) {
	annotator := NewAssertionAnnotator()

	got := ExtractBinary("La patiente présente une épilepsie pharmacorésistante.", annotator)
	require.Contains(t, got, "epilepsie")
	assert.Equal(t, "oui", got["epilepsie"].Raw)
	assert.Equal(t, 0.8, got["epilepsie"].Confidence)

	got = ExtractBinary("Pas d'épilepsie rapportée.", annotator)
	require.Contains(t, got, "epilepsie")
	assert.Equal(t, "non", got["epilepsie"].Raw)
}

func TestExtractBinaryQuickNegationFallback(t *testing.T) {
	got := ExtractBinary("Evolution favorable, sans céphalées.", nil)
	require.Contains(t, got, "ceph_hic")
	assert.Equal(t, "non", got["ceph_hic"].Raw)
}

func TestExtractNumerical(t *testing.T) {
	text := "IK : 90. Grade III. 8 mitoses/10 HPF. Radiothérapie 59,4 Gy, 6 cycles de témozolomide. Ki-67 : 15 %"
	got := ExtractNumerical(text)

	assert.Equal(t, "90", got["ik_clinique"].Raw)
	assert.Equal(t, "3", got["grade"].Raw)
	assert.Equal(t, "8", got["histo_mitoses"].Raw)
	assert.Equal(t, "59.4", got["rx_dose"].Raw)
	assert.Equal(t, "6", got["chm_cycles"].Raw)
	assert.Equal(t, "15", got["ihc_ki67"].Raw)
}

func TestExtractNumericalKarnofskyVariants(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Karnofsky à 70", "70"},
		{"KPS = 100", "100"},
		{"indice de Karnofsky : 80 %", "80"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := ExtractNumerical(tt.text)
			require.Contains(t, got, "ik_clinique")
			assert.Equal(t, tt.want, got["ik_clinique"].Raw)
		})
	}
}

func TestExtractAmplifications(t *testing.T) {
	got := ExtractAmplifications("Amplification du gène EGFR, MDM2 amplifié.")
	assert.Equal(t, "oui", got["ampli_egfr"].Raw)
	assert.Equal(t, "oui", got["ampli_mdm2"].Raw)
}

func TestExtractAmplificationsNegatedWins(t *testing.T) {
	got := ExtractAmplifications("Pas d'amplification de EGFR.")
	require.Contains(t, got, "ampli_egfr")
	assert.Equal(t, "non", got["ampli_egfr"].Raw)
}

func TestExtractFusions(t *testing.T) {
	got := ExtractFusions("Fusion FGFR confirmée. Réarrangement ALK.")
	assert.Equal(t, "oui", got["fusion_fgfr"].Raw)
	assert.Equal(t, "oui", got["fusion_autre"].Raw)

	got = ExtractFusions("Pas de fusion NTRK.")
	assert.Equal(t, "non", got["fusion_ntrk"].Raw)
}

func TestRunRulesFirstSectionWins(t *testing.T) {
	sections := []Section{
		{Name: "ihc", Text: "IDH1 : positif"},
		{Name: "conclusion", Text: "IDH1 : négatif sur contrôle, texte additionnel"},
	}
	got := RunRules("", sections, []string{"ihc_idh1"}, nil)

	require.Contains(t, got, "ihc_idh1")
	assert.Equal(t, "positif", got["ihc_idh1"].Raw)
	assert.Equal(t, "ihc", got["ihc_idh1"].Section)
}

func TestRunRulesRespectsFeatureSubset(t *testing.T) {
	sections := []Section{{Name: "ihc", Text: "IDH1 : positif, ATRX : maintenu"}}
	got := RunRules("", sections, []string{"ihc_idh1"}, nil)

	assert.Contains(t, got, "ihc_idh1")
	assert.NotContains(t, got, "ihc_atrx")
}

func TestRunRulesDateAssignment(t *testing.T) {
	sections := []Section{
		{Name: "history", Text: "Première crise le 15/01/2020. Chirurgie le 12/03/2021."},
	}
	got := RunRules("", sections, []string{"date_1er_symptome", "date_chir"}, nil)

	// Missing date fields pair with detected dates in sorted field order.
	require.Contains(t, got, "date_1er_symptome")
	require.Contains(t, got, "date_chir")
	assert.Equal(t, "15/01/2020", got["date_1er_symptome"].Raw)
	assert.Equal(t, "12/03/2021", got["date_chir"].Raw)
	assert.Equal(t, 0.7, got["date_chir"].Confidence)
}

func TestRunRulesCatchAllPass(t *testing.T) {
	fullText := "Conclusion :\nGlioblastome de grade IV.\nEpilepsie inaugurale."
	sections := []Section{{Name: "conclusion", Text: "Glioblastome de grade IV."}}

	got := RunRules(fullText, sections, []string{"grade", "epilepsie"}, nil)

	require.Contains(t, got, "grade")
	assert.Equal(t, "4", got["grade"].Raw)
	assert.Equal(t, "conclusion", got["grade"].Section)

	// epilepsie has no extractor in the conclusion section, so the
	// catch-all pass over the whole text picks it up.
	require.Contains(t, got, "epilepsie")
	assert.Equal(t, "oui", got["epilepsie"].Raw)
	assert.Equal(t, "full_text", got["epilepsie"].Section)
}

func TestRunRulesFullTextSectionSkipsCatchAll(t *testing.T) {
	sections := []Section{{Name: "full_text", Text: "IDH1 : positif"}}
	got := RunRules("IDH1 : positif", sections, []string{"ihc_idh1", "epilepsie"}, nil)

	assert.Contains(t, got, "ihc_idh1")
	assert.NotContains(t, got, "epilepsie")
}
