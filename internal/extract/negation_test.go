package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectNegation(t *testing.T) {
	a := NewAssertionAnnotator()

	tests := []struct {
		name   string
		text   string
		target string
		want   bool
	}{
		{"pas de", "Pas de nécrose observée.", "nécrose", true},
		{"absence de", "Absence de prise de contraste.", "prise de contraste", true},
		{"sans", "Lésion sans œdème péri-lésionnel.", "œdème", true},
		{"affirmative", "Présence de nécrose palissadique.", "nécrose", false},
		{"missing target", "Examen sans particularité.", "nécrose", false},
		{"cue in previous sentence", "Pas de céphalées. Nécrose focale visible.", "Nécrose", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.DetectNegation(tt.text, tt.target))
		})
	}
}

func TestAnnotateHypothesisAndHistory(t *testing.T) {
	a := NewAssertionAnnotator()

	text := "Suspicion de gliome de bas grade. Antécédents de crises comitiales."
	gliome := strings.Index(text, "gliome")
	crises := strings.Index(text, "crises")

	ann := a.Annotate(text, []Span{
		{Start: gliome, End: gliome + len("gliome"), Field: "diag_histologique"},
		{Start: crises, End: crises + len("crises"), Field: "epilepsie"},
	})
	require.Len(t, ann, 2)

	assert.True(t, ann[0].Hypothesis)
	assert.False(t, ann[0].Negated)
	assert.Equal(t, "gliome", ann[0].Text)

	assert.True(t, ann[1].History)
	assert.False(t, ann[1].Hypothesis)
}

func TestAnnotateHypothesisCueAfterSpan(t *testing.T) {
	a := NewAssertionAnnotator()

	text := "Récidive à confirmer par une nouvelle imagerie."
	idx := strings.Index(text, "Récidive")
	ann := a.Annotate(text, []Span{{Start: idx, End: idx + len("Récidive"), Field: "dn"}})

	require.Len(t, ann, 1)
	assert.True(t, ann[0].Hypothesis)
}

func TestAnnotateClampsOutOfRangeSpans(t *testing.T) {
	a := NewAssertionAnnotator()

	ann := a.Annotate("court", []Span{{Start: -3, End: 99, Field: "x"}})
	require.Len(t, ann, 1)
	assert.Equal(t, "court", ann[0].Text)
}
