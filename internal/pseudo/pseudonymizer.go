// Package pseudo replaces protected health information in clinical text
// with deterministic placeholder tokens before anything is persisted.
package pseudo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

const (
	// maxModelChars bounds one NER call; the service degrades on long inputs.
	maxModelChars = 1000
	// overlapChars keeps entities crossing a chunk boundary detectable.
	overlapChars = 350

	minChunkChars = 200
)

// DetectedSpan is one PHI span scheduled for replacement.
type DetectedSpan struct {
	Start       int
	End         int
	Label       string
	Text        string
	PseudoValue string
}

// Default placeholder templates by entity label. {token} is the stable hash
// token; DATE_NAISSANCE keeps the birth year with masked month and day.
var defaultTemplates = map[string]string{
	"NOM":            "[NOM_{token}]",
	"PRENOM":         "[PRENOM_{token}]",
	"TEL":            "[TEL_{token}]",
	"MAIL":           "[MAIL_{token}]",
	"DATE":           "[DATE_{token}]",
	"DATE_NAISSANCE": "{pseudo_value}",
	"ADRESSE":        "[ADDRESS_{token}]",
	"ZIP":            "[ZIP_{token}]",
	"VILLE":          "[VILLE_{token}]",
	"HOPITAL":        "[HOPITAL_{token}]",
	"IPP":            "[IPP_{token}]",
	"NDA":            "[NDA_{token}]",
	"SECU":           "[SSID_{token}]",
}

// Pseudonymizer rewrites text from NER detections. Replacement is applied
// right to left so earlier offsets stay valid, and tokens are deterministic
// per (salt, patient scope, label, original text).
type Pseudonymizer struct {
	ner  *NERClient
	salt string
	// Keep lists labels left untouched, identifiers the pipeline still needs.
	Keep      []string
	Templates map[string]string
	logger    *slog.Logger
}

// NewPseudonymizer builds a pseudonymizer with the default keep list
// (IPP, NDA, DATE) and templates.
func NewPseudonymizer(ner *NERClient, salt string, logger *slog.Logger) *Pseudonymizer {
	if logger == nil {
		logger = slog.Default()
	}
	templates := make(map[string]string, len(defaultTemplates))
	for k, v := range defaultTemplates {
		templates[k] = v
	}
	return &Pseudonymizer{
		ner:       ner,
		salt:      salt,
		Keep:      []string{"IPP", "NDA", "DATE"},
		Templates: templates,
		logger:    logger,
	}
}

func (p *Pseudonymizer) keeps(label string) bool {
	for _, k := range p.Keep {
		if k == label {
			return true
		}
	}
	return false
}

// StableToken derives a short irreversible token from the salt, the patient
// scope, the label, and the original text. Same input, same token, so
// repeated mentions stay linkable within a patient.
func (p *Pseudonymizer) StableToken(original, label, ipp string, consistentAcrossIPP bool) string {
	scope := ipp
	if consistentAcrossIPP {
		scope = "GLOBAL"
	} else if scope == "" {
		scope = "NO_ipp"
	}
	payload := fmt.Sprintf("%s|%s|%s|%s", p.salt, scope, label, original)
	digest := sha256.Sum256([]byte(payload))
	return strings.ToUpper(hex.EncodeToString(digest[:])[:10])
}

// Pseudonymize returns text with all detected PHI replaced. ipp scopes the
// tokens to one patient; consistentAcrossIPP makes them global instead.
func (p *Pseudonymizer) Pseudonymize(ctx context.Context, text, ipp string, consistentAcrossIPP bool) (string, error) {
	spans, err := p.DetectSpans(ctx, text)
	if err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return text, nil
	}

	type replacement struct {
		start, end int
		repl       string
	}
	var replacements []replacement

	for _, sp := range spans {
		if p.keeps(sp.Label) {
			continue
		}
		template, ok := p.Templates[sp.Label]
		if !ok {
			template = "[PHI_{label}_{token}]"
		}
		token := p.StableToken(sp.Text, sp.Label, ipp, consistentAcrossIPP)
		repl := strings.NewReplacer(
			"{label}", sp.Label,
			"{token}", token,
			"{pseudo_value}", sp.PseudoValue,
		).Replace(template)
		replacements = append(replacements, replacement{sp.Start, sp.End, repl})
	}

	sort.Slice(replacements, func(i, j int) bool {
		return replacements[i].start > replacements[j].start
	})
	out := text
	for _, r := range replacements {
		if r.start < 0 || r.end > len(out) || r.start >= r.end {
			continue
		}
		out = out[:r.start] + r.repl + out[r.end:]
	}

	p.logger.InfoContext(ctx, "pseudo.rewritten",
		"spans", len(spans), "replaced", len(replacements))
	return out, nil
}

// DetectSpans runs NER over overlapping chunks, recombines the offsets, and
// drops overlapping detections keeping the longest span per region.
func (p *Pseudonymizer) DetectSpans(ctx context.Context, text string) ([]DetectedSpan, error) {
	var all []DetectedSpan

	for _, c := range chunkText(text, maxModelChars, overlapChars) {
		if strings.TrimSpace(c.text) == "" {
			continue
		}
		entities, err := p.ner.Detect(ctx, c.text)
		if err != nil {
			return nil, err
		}
		for _, ent := range entities {
			start := ent.Start + c.offset
			end := ent.End + c.offset
			if start < 0 || end <= start || end > len(text) {
				continue
			}
			sp := DetectedSpan{
				Start: start,
				End:   end,
				Label: ent.Label,
				Text:  text[start:end],
			}
			if ent.Label == "DATE_NAISSANCE" {
				year := ent.Date
				if i := strings.Index(year, "-"); i > 0 {
					year = year[:i]
				}
				sp.PseudoValue = year + "-??-??"
			}
			all = append(all, sp)
		}
	}

	if len(all) == 0 {
		return nil, nil
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Start != all[j].Start {
			return all[i].Start < all[j].Start
		}
		return all[i].End-all[i].Start > all[j].End-all[j].Start
	})
	return dedupeOverlaps(all), nil
}

func dedupeOverlaps(spans []DetectedSpan) []DetectedSpan {
	kept := spans[:0]
	currentEnd := -1
	for _, sp := range spans {
		if sp.Start >= currentEnd {
			kept = append(kept, sp)
			currentEnd = sp.End
		}
	}
	return kept
}

type chunk struct {
	text   string
	offset int
}

var splitBoundaries = []*regexp.Regexp{
	regexp.MustCompile(`\n\s*\n`),
	regexp.MustCompile(`\n`),
	regexp.MustCompile(`[.!?](?:\s+|$)`),
	regexp.MustCompile(`[;:](?:\s+|$)`),
	regexp.MustCompile(`\s+`),
}

// findSafeSplitPoint picks a cut at or before hardEnd, preferring paragraph
// breaks, then newlines, sentence ends, weaker punctuation, and finally any
// whitespace. Never cuts inside a word.
func findSafeSplitPoint(text string, hardEnd, minEnd int) int {
	end := hardEnd
	if hardEnd > minEnd {
		window := text[minEnd:hardEnd]
		end = -1
		for _, re := range splitBoundaries {
			matches := re.FindAllStringIndex(window, -1)
			if len(matches) > 0 {
				end = minEnd + matches[len(matches)-1][1]
				break
			}
		}
		if end < 0 {
			end = hardEnd
		}
	}

	if end > 0 && end < len(text) && isAlnum(text[end-1]) && isAlnum(text[end]) {
		j := end
		for j > minEnd && isAlnum(text[j-1]) {
			j--
		}
		if j >= minEnd {
			end = j
		}
	}

	if end < minEnd {
		end = minEnd
	}
	if end > hardEnd {
		end = hardEnd
	}
	return end
}

func isAlnum(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func chunkText(text string, maxChars, overlap int) []chunk {
	n := len(text)
	if n <= maxChars {
		return []chunk{{text, 0}}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > maxChars/3 {
		overlap = maxChars / 3
	}

	var chunks []chunk
	start := 0
	for start < n {
		hardEnd := start + maxChars
		if hardEnd > n {
			hardEnd = n
		}
		minEnd := start + max(minChunkChars, maxChars-2*overlap)
		if minEnd > hardEnd {
			minEnd = hardEnd
		}

		end := findSafeSplitPoint(text, hardEnd, minEnd)
		chunks = append(chunks, chunk{text[start:end], start})

		if end >= n {
			break
		}
		start = end - overlap
		if start < 0 {
			start = 0
		}
	}
	return chunks
}
