package llm

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

func normalizeWhitespace(text string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")))
}

// ValidateSourceSpans verifies that each cited source span occurs in the
// original document. Spans that cannot be matched, even fuzzily by word
// overlap, get the value flagged for review. LLM values with no span at all
// are flagged too.
func ValidateSourceSpans(extractions map[string]*schema.Value, originalText string, fuzzyThreshold float64, logger *slog.Logger) map[string]*schema.Value {
	if logger == nil {
		logger = slog.Default()
	}
	normalizedText := normalizeWhitespace(originalText)

	for fieldName, v := range extractions {
		if v == nil {
			continue
		}
		if strings.TrimSpace(v.SourceSpan) == "" {
			if v.Tier == schema.TierLLM {
				v.Flagged = true
				logger.Debug("llm.span.missing", "field", fieldName)
			}
			continue
		}

		span := normalizeWhitespace(v.SourceSpan)
		if strings.Contains(normalizedText, span) {
			continue
		}

		words := strings.Fields(span)
		if len(words) == 0 {
			continue
		}
		found := 0
		for _, w := range words {
			if strings.Contains(normalizedText, w) {
				found++
			}
		}
		similarity := float64(found) / float64(len(words))
		if similarity >= fuzzyThreshold {
			logger.Debug("llm.span.fuzzy_match",
				"field", fieldName, "similarity", similarity)
			continue
		}

		v.Flagged = true
		logger.Warn("llm.span.not_found",
			"field", fieldName,
			"similarity", similarity,
			"span", truncateForLog(v.SourceSpan, 80))
	}
	return extractions
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
