package extract

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func sectionNames(sections []Section) []string {
	names := make([]string, len(sections))
	for i, s := range sections {
		names[i] = s.Name
	}
	return names
}

func TestDetectEmptyText(t *testing.T) {
	d := NewSectionDetector()

	sections := d.Detect("")
	require.Len(t, sections, 1)
	assert.Equal(t, "full_text", sections[0].Name)

	sections = d.Detect("   \n\t  ")
	require.Len(t, sections, 1)
	assert.Equal(t, "full_text", sections[0].Name)
}

func TestDetectNoHeaders(t *testing.T) {
	d := NewSectionDetector()
	text := "Patiente de 54 ans suivie pour un gliome de bas grade."

	sections := d.Detect(text)
	require.Len(t, sections, 1)
	assert.Equal(t, "full_text", sections[0].Name)
	assert.Equal(t, text, sections[0].Text)
}

func TestDetectStrictHeaders(t *testing.T) {
	d := NewSectionDetector()
	text := "CHU de Bordeaux, service de neuropathologie\n" +
		"Examen macroscopique :\n" +
		"Fragment de 2 cm fixé en formol.\n" +
		"Examen microscopique :\n" +
		"Prolifération gliale avec nécrose palissadique.\n" +
		"Conclusion :\n" +
		"Glioblastome, IDH non muté, grade 4.\n"

	sections := d.Detect(text)
	assert.Equal(t, []string{"preamble", "macroscopy", "microscopy", "conclusion"}, sectionNames(sections))
	assert.Contains(t, sections[1].Text, "formol")
	assert.Contains(t, sections[3].Text, "Glioblastome")
}

func TestDetectDropsShortBodies(t *testing.T) {
	d := NewSectionDetector()
	text := "Examen macroscopique :\n" +
		"RAS\n" +
		"Conclusion :\n" +
		"Glioblastome, IDH non muté, grade 4.\n"

	sections := d.Detect(text)
	assert.Equal(t, []string{"conclusion"}, sectionNames(sections))
}

func TestDetectLenientFallback(t *testing.T) {
	d := NewSectionDetector()
	// Header followed by inline content matches no strict pattern.
	text := "Conclusion : oligodendrogliome de grade 2, codélétion 1p/19q."

	sections := d.Detect(text)
	require.Len(t, sections, 1)
	assert.Equal(t, "conclusion", sections[0].Name)
	assert.Contains(t, sections[0].Text, "oligodendrogliome")
}

func TestDetectPreambleOnlyFallsBack(t *testing.T) {
	d := NewSectionDetector()
	// The single detected body is too short, leaving only the preamble.
	text := "Dossier transmis pour relecture par le Dr X.\nConclusion :\nRAS\n"

	sections := d.Detect(text)
	require.Len(t, sections, 1)
	assert.Equal(t, "full_text", sections[0].Name)
}

func TestFeaturesForSections(t *testing.T) {
	all := FeaturesForSections([]string{"ihc", "full_text"})
	assert.Len(t, all, len(schema.AllFieldNames()))

	feats := FeaturesForSections([]string{"ihc"})
	assert.True(t, sort.StringsAreSorted(feats))
	assert.Contains(t, feats, "ihc_idh1")
	assert.Contains(t, feats, "ihc_ki67")
	// Preamble identity fields are always included.
	assert.Contains(t, feats, "nip")
	assert.Contains(t, feats, "date_chir")
	assert.NotContains(t, feats, "mol_idh1")

	union := FeaturesForSections([]string{"ihc", "molecular"})
	assert.Contains(t, union, "ihc_idh1")
	assert.Contains(t, union, "mol_idh1")
}

func TestSectionsForFeature(t *testing.T) {
	assert.Equal(t, []string{"ihc", "microscopy"}, SectionsForFeature("ihc_ki67"))
	assert.Equal(t, []string{"conclusion", "microscopy"}, SectionsForFeature("grade"))
	assert.Empty(t, SectionsForFeature("no_such_field"))
}
