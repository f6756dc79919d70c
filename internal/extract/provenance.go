package extract

import (
	"fmt"
	"math"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Result is the full extraction output for one document: extracted features
// with provenance, section names, and an audit trail of pipeline decisions.
type Result struct {
	DocumentID   string `json:"document_id"`
	DocumentType string `json:"document_type"`
	DocumentDate string `json:"document_date,omitempty"`
	PatientID    string `json:"patient_id"`

	Features map[string]*schema.Value `json:"features"`

	SectionsDetected []string `json:"sections_detected"`
	Log              []string `json:"extraction_log"`
	FlaggedForReview []string `json:"flagged_for_review"`

	ClassificationConfidence float64 `json:"classification_confidence"`
	ClassificationAmbiguous  bool    `json:"classification_is_ambiguous"`

	Tier1Count int     `json:"tier1_count"`
	Tier2Count int     `json:"tier2_count"`
	ElapsedMS  float64 `json:"total_extraction_time_ms"`
}

// NewResult returns an empty extraction result for a document.
func NewResult(documentID string) *Result {
	return &Result{
		DocumentID: documentID,
		Features:   map[string]*schema.Value{},
	}
}

// AddLog appends a message to the extraction audit trail.
func (r *Result) AddLog(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

// FlagField marks a field as needing human review.
func (r *Result) FlagField(fieldName string) {
	for _, f := range r.FlaggedForReview {
		if f == fieldName {
			return
		}
	}
	r.FlaggedForReview = append(r.FlaggedForReview, fieldName)
}

// UpdateFlagged syncs FlaggedForReview with the per-value flags.
func (r *Result) UpdateFlagged() {
	for name, v := range r.Features {
		if v != nil && v.Flagged {
			r.FlagField(name)
		}
	}
}

// Summary returns a concise view for logging and the console.
func (r *Result) Summary() map[string]any {
	return map[string]any{
		"document_id":        r.DocumentID,
		"document_type":      r.DocumentType,
		"document_date":      r.DocumentDate,
		"patient_id":         r.PatientID,
		"total_features":     len(r.Features),
		"tier1_count":        r.Tier1Count,
		"tier2_count":        r.Tier2Count,
		"flagged_count":      len(r.FlaggedForReview),
		"sections":           r.SectionsDetected,
		"extraction_time_ms": math.Round(r.ElapsedMS*10) / 10,
	}
}

// Values returns a flat field name to value map without provenance.
func (r *Result) Values() map[string]string {
	out := make(map[string]string, len(r.Features))
	for name, v := range r.Features {
		if v == nil {
			continue
		}
		out[name] = v.Raw
	}
	return out
}
