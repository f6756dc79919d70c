package bench

import (
	"sort"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Counts holds the confusion counts for one feature on one document. An
// alteration (both values present but different) counts against both
// precision and recall.
type Counts struct {
	TP              int
	TN              int
	FPHallucination int
	FNOmission      int
	Alteration      int
}

// PerFeatureCounts scores predicted values against gold annotations, one
// Counts per field. Fields outside the document's annotation scope are
// skipped.
func PerFeatureCounts(predicted map[string]*schema.Value, gold *GoldDocument) map[string]Counts {
	fields := map[string]struct{}{}
	for name := range predicted {
		fields[name] = struct{}{}
	}
	for name := range gold.Annotations {
		fields[name] = struct{}{}
	}

	out := make(map[string]Counts, len(fields))
	for name := range fields {
		if !gold.InScope(name) {
			continue
		}

		predValue := ""
		if v, ok := predicted[name]; ok && v != nil {
			predValue = v.Raw
		}
		goldValue := ""
		ann, hasAnn := gold.Annotations[name]
		if hasAnn {
			goldValue = ann.Value
		}

		var c Counts
		switch {
		case goldValue != "" && predValue != "":
			if ann.Matches(predValue) {
				c.TP = 1
			} else {
				c.Alteration = 1
			}
		case goldValue != "":
			c.FNOmission = 1
		case predValue != "":
			c.FPHallucination = 1
		default:
			c.TN = 1
		}
		out[name] = c
	}
	return out
}

// FeatureMetrics are the aggregated scores for one feature across documents.
type FeatureMetrics struct {
	Feature           string
	TP                int
	TN                int
	FP                int // hallucinations + alterations
	FN                int // omissions + alterations
	Hallucinations    int
	Omissions         int
	Alterations       int
	Precision         float64
	Recall            float64
	F1                float64
	Accuracy          float64
	HallucinationRate float64
	OmissionRate      float64
	AlterationRate    float64
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// AggregateMetrics sums per-document counts and derives precision, recall,
// F1, accuracy, and error rates per feature. Results are sorted by feature
// name, with a final "OVERALL" row summing every feature.
func AggregateMetrics(perDocument []map[string]Counts) []FeatureMetrics {
	sums := map[string]Counts{}
	for _, doc := range perDocument {
		for name, c := range doc {
			s := sums[name]
			s.TP += c.TP
			s.TN += c.TN
			s.FPHallucination += c.FPHallucination
			s.FNOmission += c.FNOmission
			s.Alteration += c.Alteration
			sums[name] = s
		}
	}

	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)

	var overall Counts
	out := make([]FeatureMetrics, 0, len(names)+1)
	for _, name := range names {
		c := sums[name]
		overall.TP += c.TP
		overall.TN += c.TN
		overall.FPHallucination += c.FPHallucination
		overall.FNOmission += c.FNOmission
		overall.Alteration += c.Alteration
		out = append(out, deriveMetrics(name, c))
	}
	out = append(out, deriveMetrics("OVERALL", overall))
	return out
}

func deriveMetrics(name string, c Counts) FeatureMetrics {
	fp := c.FPHallucination + c.Alteration
	fn := c.FNOmission + c.Alteration
	goldPresent := c.TP + c.Alteration + c.FNOmission

	m := FeatureMetrics{
		Feature:        name,
		TP:             c.TP,
		TN:             c.TN,
		FP:             fp,
		FN:             fn,
		Hallucinations: c.FPHallucination,
		Omissions:      c.FNOmission,
		Alterations:    c.Alteration,
	}
	m.Precision = ratio(c.TP, c.TP+fp)
	m.Recall = ratio(c.TP, c.TP+fn)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.Accuracy = ratio(c.TP+c.TN, c.TP+c.TN+c.FPHallucination+c.FNOmission+c.Alteration)
	m.HallucinationRate = ratio(c.FPHallucination, c.FPHallucination+c.TN)
	m.OmissionRate = ratio(c.FNOmission, goldPresent)
	m.AlterationRate = ratio(c.Alteration, goldPresent)
	return m
}
