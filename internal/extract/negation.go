package extract

import (
	"regexp"
	"strings"
)

// Span is a character range inside a document, tagged with the field it
// supports.
type Span struct {
	Start int
	End   int
	Field string
}

// Annotation carries the assertion status of one span.
type Annotation struct {
	Text       string
	Start      int
	End        int
	Field      string
	Negated    bool
	Hypothesis bool
	History    bool
}

// French assertion cues. Negation cues are only searched before the span,
// hypothesis and history cues on both sides.
var negationCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpas\s+(?:de\b|d['’])`),
	regexp.MustCompile(`(?i)\babsence\s+(?:de\b|d['’])`),
	regexp.MustCompile(`(?i)\bsans\s`),
	regexp.MustCompile(`(?i)\baucune?\s`),
	regexp.MustCompile(`(?i)\bni\s`),
	regexp.MustCompile(`(?i)\bnon\s`),
	regexp.MustCompile(`(?i)\bn['’]?\s*(?:est|a|montre|r[eé]v[eè]le|retrouve|objective)\s+pas\b`),
	regexp.MustCompile(`(?i)\bn[eé]gati(?:f|ve)s?\b`),
}

var hypothesisCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bpossible(?:ment)?\b`),
	regexp.MustCompile(`(?i)\bprobable(?:ment)?\b`),
	regexp.MustCompile(`(?i)\bsuspect[eé]e?\b`),
	regexp.MustCompile(`(?i)\bsuspicion\b`),
	regexp.MustCompile(`(?i)\b[aà]\s+confirmer\b`),
	regexp.MustCompile(`(?i)\b[aà]\s+(?:confronter|corr[eé]ler)\b`),
	regexp.MustCompile(`(?i)\b[eé]ventuel(?:le(?:ment)?)?\b`),
	regexp.MustCompile(`(?i)\bhypoth[eè]se\b`),
}

var historyCues = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bant[eé]c[eé]dents?\b`),
	regexp.MustCompile(`(?i)\bhistoire\s+de\b`),
	regexp.MustCompile(`(?i)\bhistorique(?:ment)?\b`),
	regexp.MustCompile(`(?i)\bancien(?:ne)?(?:ment)?\b`),
	regexp.MustCompile(`(?i)\bpr[eé]c[eé]demment\b`),
	regexp.MustCompile(`(?i)\bant[eé]rieurement\b`),
	regexp.MustCompile(`(?i)\ben\s+\d{4}\b`),
}

var sentenceBoundary = regexp.MustCompile(`[.!?;]\s`)

const assertionWindow = 60

// cueNearSpan reports whether any cue matches in the window before the span.
// With lookAfter it also checks the window after the span. Cues from a
// neighboring sentence are ignored.
func cueNearSpan(text string, spanStart, spanEnd int, cues []*regexp.Regexp, lookAfter bool) bool {
	ctxStart := spanStart - assertionWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	before := text[ctxStart:spanEnd]
	if boundaries := sentenceBoundary.FindAllStringIndex(before, -1); len(boundaries) > 0 {
		lastEnd := boundaries[len(boundaries)-1][1]
		if lastEnd <= spanStart-ctxStart {
			before = before[lastEnd:]
			ctxStart += lastEnd
		}
	}
	for _, cue := range cues {
		if loc := cue.FindStringIndex(before); loc != nil && ctxStart+loc[1] <= spanEnd {
			return true
		}
	}

	if lookAfter {
		ctxEnd := spanEnd + assertionWindow
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}
		after := text[spanStart:ctxEnd]
		relEnd := spanEnd - spanStart
		if loc := sentenceBoundary.FindStringIndex(after[relEnd:]); loc != nil {
			after = after[:relEnd+loc[0]]
		}
		for _, cue := range cues {
			if cue.MatchString(after) {
				return true
			}
		}
	}
	return false
}

// AssertionAnnotator flags extracted spans as negated, hypothetical, or
// historical from cue words in the surrounding sentence.
type AssertionAnnotator struct{}

// NewAssertionAnnotator returns a ready annotator.
func NewAssertionAnnotator() *AssertionAnnotator {
	return &AssertionAnnotator{}
}

// Annotate returns one Annotation per input span.
func (a *AssertionAnnotator) Annotate(text string, spans []Span) []Annotation {
	out := make([]Annotation, 0, len(spans))
	for _, sp := range spans {
		start, end := sp.Start, sp.End
		if start < 0 {
			start = 0
		}
		if end > len(text) {
			end = len(text)
		}
		out = append(out, Annotation{
			Text:       text[start:end],
			Start:      sp.Start,
			End:        sp.End,
			Field:      sp.Field,
			Negated:    cueNearSpan(text, start, end, negationCues, false),
			Hypothesis: cueNearSpan(text, start, end, hypothesisCues, true),
			History:    cueNearSpan(text, start, end, historyCues, true),
		})
	}
	return out
}

// DetectNegation reports whether the first case-insensitive occurrence of
// target in text is negated. Missing targets are not negated.
func (a *AssertionAnnotator) DetectNegation(text, target string) bool {
	idx := strings.Index(strings.ToLower(text), strings.ToLower(target))
	if idx < 0 {
		return false
	}
	ann := a.Annotate(text, []Span{{Start: idx, End: idx + len(target), Field: target}})
	return len(ann) > 0 && ann[0].Negated
}
