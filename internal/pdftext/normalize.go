package pdftext

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reSpaces      = regexp.MustCompile(`[ \t\f\v]+`)
	reDigitLetter = regexp.MustCompile(`(\d)([A-Za-zÀ-ÖØ-öø-ÿ])`)
	reLetterDigit = regexp.MustCompile(`([A-Za-zÀ-ÖØ-öø-ÿ])(\d)`)
	reBlankLines  = regexp.MustCompile(`\n{3,}`)
)

// Non-breaking space variants that show up in PDF output.
var spaceReplacer = strings.NewReplacer(" ", " ", " ", " ", " ", " ")

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// despacifyLine collapses "c h a r a c t e r  s p a c e d" lines. A line
// qualifies when most of its adjacent letters are separated by whitespace.
// Single spaces between word runes are removed, longer runs become one space.
func despacifyLine(s string) string {
	runes := []rune(s)
	letters := 0
	pairs := 0
	for i := 0; i < len(runes); {
		if !unicode.IsLetter(runes[i]) {
			i++
			continue
		}
		letters++
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j > i+1 && j < len(runes) && unicode.IsLetter(runes[j]) {
			pairs++
		}
		i = j
	}
	threshold := int(0.6 * float64(letters-1))
	if threshold < 3 {
		threshold = 3
	}
	if letters < 8 || pairs < threshold {
		return s
	}

	var b strings.Builder
	for i := 0; i < len(runes); i++ {
		if unicode.IsSpace(runes[i]) {
			j := i
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			if i > 0 && j < len(runes) && isWordRune(runes[i-1]) && isWordRune(runes[j]) {
				if j-i > 1 {
					b.WriteRune(' ')
				}
				i = j - 1
				continue
			}
		}
		b.WriteRune(runes[i])
	}
	return b.String()
}

// Normalize cleans extracted PDF text: newline and space unification,
// de-spacing of character spaced lines, and recovery of missing spaces at
// digit/letter boundaries.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = spaceReplacer.Replace(text)

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		stripped = despacifyLine(stripped)
		lines[i] = reSpaces.ReplaceAllString(stripped, " ")
	}
	text = strings.Join(lines, "\n")

	text = reDigitLetter.ReplaceAllString(text, "$1 $2")
	text = reLetterDigit.ReplaceAllString(text, "$1 $2")

	return strings.TrimSpace(reBlankLines.ReplaceAllString(text, "\n\n"))
}
