package aggregate

import (
	"sort"
	"time"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Document-type priority for conflict resolution. Lower index wins. A type
// absent from the list ranks last.
var (
	BioPriority      = []string{"anapath", "molecular_report", "rcp", "consultation"}
	CliniquePriority = []string{"consultation", "rcp", "anapath"}
)

// Feature temporality categories, derived from field groups:
//   - static: patient identity and disease onset, set once and carried
//     forward, updated only by a higher-priority source.
//   - specimen-bound: results tied to a surgical specimen, carried forward
//     until a new surgery resets the specimen context.
//   - time-varying: clinical state, latest explicit value carries forward.
var staticGroups = map[string]struct{}{
	"demographics":    {},
	"care_team":       {},
	"outcome":         {},
	"first_symptoms":  {},
	"radiology":       {},
	"tumour_location": {},
}

var specimenGroups = map[string]struct{}{
	"diagnosis":     {},
	"ihc":           {},
	"histology":     {},
	"molecular":     {},
	"chromosomal":   {},
	"amplification": {},
	"fusion":        {},
}

type temporality int

const (
	timeVarying temporality = iota
	static
	specimenBound
)

func featureTemporality(name string) temporality {
	f, err := schema.FieldByName(name)
	if err != nil {
		return timeVarying
	}
	if f.Clinical {
		if _, ok := staticGroups[f.Group]; ok {
			return static
		}
		return timeVarying
	}
	switch f.Group {
	case "identifiers":
		// nip is static identity, date_chir is an event date.
		if name == "nip" {
			return static
		}
		if name == "date_chir" {
			return timeVarying
		}
		return specimenBound
	default:
		if _, ok := specimenGroups[f.Group]; ok {
			return specimenBound
		}
		return timeVarying
	}
}

// StaticFeatures, SpecimenBoundFeatures and TimeVaryingFeatures expose the
// category membership for every schema field.
func StaticFeatures() []string        { return featuresOf(static) }
func SpecimenBoundFeatures() []string { return featuresOf(specimenBound) }
func TimeVaryingFeatures() []string   { return featuresOf(timeVarying) }

func featuresOf(t temporality) []string {
	var out []string
	for _, name := range schema.AllFieldNames() {
		if featureTemporality(name) == t {
			out = append(out, name)
		}
	}
	return out
}

// PriorityRank returns the conflict-resolution rank of a document type for a
// field: biological fields trust anapath most, clinical fields trust
// consultations most. Unknown types get the lowest rank.
func PriorityRank(docType, field string) int {
	list := BioPriority
	if f, err := schema.FieldByName(field); err == nil && f.Clinical {
		list = CliniquePriority
	}
	for i, t := range list {
		if t == docType {
			return i
		}
	}
	return len(list)
}

// TimelineRow is one timepoint of a patient timeline.
type TimelineRow struct {
	PatientID    string            `json:"_patient_id"`
	DocumentID   string            `json:"_document_id"`
	DocumentType string            `json:"_document_type"`
	DocumentDate string            `json:"_document_date"`
	Fields       map[string]string `json:"fields"`
}

func parseDocDate(s string) (time.Time, bool) {
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type rankedValue struct {
	value string
	rank  int
}

// AggregateTimeline orders extraction rows chronologically (undated last,
// stable) and forward-fills feature values according to their temporality
// category. NA never overwrites an explicit value.
func AggregateTimeline(results []*extract.Result) []TimelineRow {
	if len(results) == 0 {
		return nil
	}

	ordered := append([]*extract.Result(nil), results...)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, oki := parseDocDate(ordered[i].DocumentDate)
		tj, okj := parseDocDate(ordered[j].DocumentDate)
		if oki != okj {
			return oki
		}
		if !oki {
			return false
		}
		return ti.Before(tj)
	})

	staticVals := map[string]rankedValue{}
	specimenVals := map[string]rankedValue{}
	varyingVals := map[string]string{}
	lastSurgeryDate := ""

	rows := make([]TimelineRow, 0, len(ordered))
	for _, r := range ordered {
		// A new surgery starts a new specimen context.
		if v, ok := r.Features["chir_date"]; ok && v != nil && v.Raw != "" && v.Raw != lastSurgeryDate {
			specimenVals = map[string]rankedValue{}
			lastSurgeryDate = v.Raw
		}

		for name, v := range r.Features {
			if v == nil || v.Raw == "" {
				continue
			}
			rank := PriorityRank(r.DocumentType, name)
			switch featureTemporality(name) {
			case static:
				cur, set := staticVals[name]
				if !set || rank < cur.rank {
					staticVals[name] = rankedValue{v.Raw, rank}
				}
			case specimenBound:
				cur, set := specimenVals[name]
				if !set || rank <= cur.rank {
					specimenVals[name] = rankedValue{v.Raw, rank}
				}
			default:
				varyingVals[name] = v.Raw
			}
		}

		fields := make(map[string]string,
			len(staticVals)+len(specimenVals)+len(varyingVals))
		for name, rv := range staticVals {
			fields[name] = rv.value
		}
		for name, rv := range specimenVals {
			fields[name] = rv.value
		}
		for name, val := range varyingVals {
			fields[name] = val
		}

		rows = append(rows, TimelineRow{
			PatientID:    r.PatientID,
			DocumentID:   r.DocumentID,
			DocumentType: r.DocumentType,
			DocumentDate: r.DocumentDate,
			Fields:       fields,
		})
	}
	return rows
}

// TimelineColumns returns the metadata columns followed by every feature
// column present in the rows, in schema order.
func TimelineColumns(rows []TimelineRow) []string {
	present := map[string]struct{}{}
	for _, row := range rows {
		for name := range row.Fields {
			present[name] = struct{}{}
		}
	}
	cols := []string{"_patient_id", "_document_id", "_document_type", "_document_date"}
	for _, name := range schema.AllFieldNames() {
		if _, ok := present[name]; ok {
			cols = append(cols, name)
		}
	}
	return cols
}
