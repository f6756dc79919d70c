// Package aggregate builds per-patient timelines: splitting multi-event
// documents into one row per event, then forward-filling feature values
// chronologically with document-type priority for conflicts.
package aggregate

import (
	"regexp"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Event-date fields checked for multiple values, in priority order: a
// document reporting several surgeries splits on surgeries even if it also
// lists several chemo lines.
var (
	SurgeryEventFields     = []string{"chir_date"}
	ChemoEventFields       = []string{"chm_date_debut"}
	RadioEventFields       = []string{"rx_date_debut"}
	ProgressionEventFields = []string{"date_progression"}
)

type eventKind struct {
	name      string
	dateField string
}

var eventPriority = []eventKind{
	{"surgery", SurgeryEventFields[0]},
	{"chemotherapy", ChemoEventFields[0]},
	{"radiotherapy", RadioEventFields[0]},
	{"progression", ProgressionEventFields[0]},
}

// Delimiters for multi-value strings. Slash is never a delimiter, dates are
// DD/MM/YYYY.
var multiValueDelim = regexp.MustCompile(`,|;|\s+et\s+|\s+puis\s+`)

// ParseMultipleValues splits a raw value on comma, semicolon, " et " and
// " puis ". Parts are trimmed; empty parts are dropped.
func ParseMultipleValues(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range multiValueDelim.Split(raw, -1) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// DistinctDates returns the distinct values of a date field in order of
// appearance.
func DistinctDates(result *extract.Result, field string) []string {
	v, ok := result.Features[field]
	if !ok || v == nil || v.Raw == "" {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for _, d := range ParseMultipleValues(v.Raw) {
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func cloneResult(r *extract.Result) *extract.Result {
	c := *r
	c.Features = make(map[string]*schema.Value, len(r.Features))
	for name, v := range r.Features {
		if v == nil {
			c.Features[name] = nil
			continue
		}
		vc := *v
		c.Features[name] = &vc
	}
	c.SectionsDetected = append([]string(nil), r.SectionsDetected...)
	c.Log = append([]string(nil), r.Log...)
	c.FlaggedForReview = append([]string(nil), r.FlaggedForReview...)
	return &c
}

// DetectMultipleEvents splits a document reporting several treatment events
// into one row per event date. Shared features are copied to every row; the
// triggering date field carries one event date per row. For chemotherapy,
// drug names are distributed one per row when their count matches the number
// of dates, otherwise every row keeps the original value. A single-event
// document is returned unchanged.
func DetectMultipleEvents(result *extract.Result) []*extract.Result {
	for _, kind := range eventPriority {
		dates := DistinctDates(result, kind.dateField)
		if len(dates) < 2 {
			continue
		}

		var chemoNames []string
		if kind.name == "chemotherapy" {
			if v, ok := result.Features["chimios"]; ok && v != nil {
				if names := ParseMultipleValues(v.Raw); len(names) == len(dates) {
					chemoNames = names
				}
			}
		}

		rows := make([]*extract.Result, 0, len(dates))
		for i, date := range dates {
			row := cloneResult(result)
			row.Features[kind.dateField].Raw = date
			if chemoNames != nil {
				row.Features["chimios"].Raw = chemoNames[i]
			}
			row.AddLog("Row duplicated for multiple %s events: event %d of %d (%s).",
				kind.name, i+1, len(dates), date)
			rows = append(rows, row)
		}
		return rows
	}
	return []*extract.Result{result}
}
