package pdftext

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"crlf and spaces",
			"ligne une\r\nligne  deux\t suite",
			"ligne une\nligne deux suite",
		},
		{
			"non breaking spaces",
			"IDH 1 positif chez le patient",
			"IDH 1 positif chez le patient",
		},
		{
			"character spaced line",
			"C o m p t e   r e n d u   d e   c o n s u l t a t i o n",
			"Compte rendu de consultation",
		},
		{
			"digit letter boundary",
			"dose de 60Gy en 30fractions",
			"dose de 60 Gy en 30 fractions",
		},
		{
			"letter digit boundary",
			"grade IV selon OMS2021",
			"grade IV selon OMS 2021",
		},
		{
			"blank line squeeze",
			"a longue premiere ligne\n\n\n\nb longue seconde ligne",
			"a longue premiere ligne\n\nb longue seconde ligne",
		},
		{
			"leading line whitespace",
			"entete du document\n   corps indenté du texte",
			"entete du document\ncorps indenté du texte",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestDespacifyLineLeavesNormalText(t *testing.T) {
	in := "Compte rendu de consultation du patient"
	assert.Equal(t, in, despacifyLine(in))
}

func TestDespacifyLineShortText(t *testing.T) {
	// Too few letters to qualify.
	assert.Equal(t, "I K 9 0", despacifyLine("I K 9 0"))
}

func TestIsScanned(t *testing.T) {
	long := "Compte rendu de consultation avec un texte suffisamment long pour compter."

	assert.False(t, IsScanned(nil))
	assert.False(t, IsScanned([]string{long, long}))
	assert.True(t, IsScanned([]string{"", ""}))
	// One of two short pages is not a majority.
	assert.False(t, IsScanned([]string{long, ""}))
	assert.True(t, IsScanned([]string{long, "", ""}))
}

func TestCountNonSpace(t *testing.T) {
	assert.Equal(t, 0, countNonSpace(" \t\n"))
	assert.Equal(t, 4, countNonSpace(" a b\ncd "))
}
