package schema

// Tier identifies how a value was produced.
type Tier string

const (
	TierRule   Tier = "rule"
	TierLLM    Tier = "llm"
	TierManual Tier = "manual"
)

// Value is a single extracted field value with its provenance.
type Value struct {
	Raw        string  `json:"value"`
	SourceSpan string  `json:"source_span,omitempty"`
	SpanStart  int     `json:"source_span_start,omitempty"`
	SpanEnd    int     `json:"source_span_end,omitempty"`
	Tier       Tier    `json:"extraction_tier"`
	Confidence float64 `json:"confidence,omitempty"`
	Section    string  `json:"section,omitempty"`
	VocabValid bool    `json:"vocab_valid"`
	Flagged    bool    `json:"flagged"`
}

// RuleValue builds a tier-1 value with full confidence.
func RuleValue(raw, span, section string) *Value {
	return &Value{
		Raw:        raw,
		SourceSpan: span,
		Section:    section,
		Tier:       TierRule,
		Confidence: 1.0,
		VocabValid: true,
	}
}

// LLMValue builds a tier-2 value with default model confidence.
func LLMValue(raw, span, section string) *Value {
	return &Value{
		Raw:        raw,
		SourceSpan: span,
		Section:    section,
		Tier:       TierLLM,
		Confidence: 0.7,
		VocabValid: true,
	}
}
