package bench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func goldDoc(bio, clinique bool, annotations map[string]string) *GoldDocument {
	d := &GoldDocument{
		DocumentID:             "doc1",
		PatientID:              "42",
		HasBioAnnotations:      bio,
		HasCliniqueAnnotations: clinique,
		Annotations:            map[string]GoldAnnotation{},
	}
	for name, value := range annotations {
		d.Annotations[name] = GoldAnnotation{FieldName: name, Value: value}
	}
	return d
}

func TestPerFeatureCounts(t *testing.T) {
	gold := goldDoc(true, false, map[string]string{
		"ihc_idh1":  "positif",
		"ihc_p53":   "positif",
		"ihc_atrx":  "maintenu",
		"epilepsie": "oui",
	})
	predicted := map[string]*schema.Value{
		"ihc_idh1": {Raw: "positif"}, // agrees
		"ihc_atrx": {Raw: "perdu"},   // disagrees
		"ihc_ki67": {Raw: "20"},      // not annotated
		"ihc_mmr":  nil,              // nil prediction, no gold
	}

	counts := PerFeatureCounts(predicted, gold)

	assert.Equal(t, Counts{TP: 1}, counts["ihc_idh1"])
	assert.Equal(t, Counts{Alteration: 1}, counts["ihc_atrx"])
	assert.Equal(t, Counts{FNOmission: 1}, counts["ihc_p53"])
	assert.Equal(t, Counts{FPHallucination: 1}, counts["ihc_ki67"])
	assert.Equal(t, Counts{TN: 1}, counts["ihc_mmr"])

	// Clinical fields stay out of scope without clinique annotations.
	_, scored := counts["epilepsie"]
	assert.False(t, scored)
}

func TestPerFeatureCountsCaseInsensitiveMatch(t *testing.T) {
	gold := goldDoc(true, false, map[string]string{"ihc_idh1": "Positif"})
	counts := PerFeatureCounts(map[string]*schema.Value{
		"ihc_idh1": {Raw: " positif "},
	}, gold)
	assert.Equal(t, Counts{TP: 1}, counts["ihc_idh1"])
}

func TestAggregateMetrics(t *testing.T) {
	perDocument := []map[string]Counts{
		{
			"ihc_idh1": {TP: 1},
			"ihc_p53":  {FPHallucination: 1},
		},
		{
			"ihc_idh1": {Alteration: 1},
			"ihc_p53":  {TN: 1},
		},
	}

	metrics := AggregateMetrics(perDocument)
	require.Len(t, metrics, 3)

	// Sorted by feature, OVERALL last.
	assert.Equal(t, "ihc_idh1", metrics[0].Feature)
	assert.Equal(t, "ihc_p53", metrics[1].Feature)
	assert.Equal(t, "OVERALL", metrics[2].Feature)

	idh1 := metrics[0]
	assert.Equal(t, 1, idh1.TP)
	assert.Equal(t, 1, idh1.FP)
	assert.Equal(t, 1, idh1.FN)
	assert.Equal(t, 1, idh1.Alterations)
	assert.InDelta(t, 0.5, idh1.Precision, 1e-9)
	assert.InDelta(t, 0.5, idh1.Recall, 1e-9)
	assert.InDelta(t, 0.5, idh1.F1, 1e-9)
	assert.InDelta(t, 0.5, idh1.Accuracy, 1e-9)
	assert.InDelta(t, 0.5, idh1.AlterationRate, 1e-9)
	assert.Zero(t, idh1.OmissionRate)

	p53 := metrics[1]
	assert.Equal(t, 1, p53.Hallucinations)
	assert.Zero(t, p53.Precision)
	assert.InDelta(t, 0.5, p53.HallucinationRate, 1e-9)

	overall := metrics[2]
	assert.Equal(t, 1, overall.TP)
	assert.Equal(t, 1, overall.TN)
	assert.Equal(t, 2, overall.FP)
	assert.Equal(t, 1, overall.FN)
}

func TestAggregateMetricsEmpty(t *testing.T) {
	metrics := AggregateMetrics(nil)
	require.Len(t, metrics, 1)
	assert.Equal(t, "OVERALL", metrics[0].Feature)
	assert.Zero(t, metrics[0].Precision)
	assert.Zero(t, metrics[0].F1)
}
