package aggregate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func TestParseMultipleValues(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"comma", "temozolomide, lomustine", []string{"temozolomide", "lomustine"}},
		{"semicolon", "a;b", []string{"a", "b"}},
		{"et", "PCV et temozolomide", []string{"PCV", "temozolomide"}},
		{"puis", "12/03/2021 puis 05/06/2022", []string{"12/03/2021", "05/06/2022"}},
		{"mixed", "a, b; c et d puis e", []string{"a", "b", "c", "d", "e"}},
		{"slash is not a delimiter", "12/03/2021", []string{"12/03/2021"}},
		{"empty parts dropped", "a, , b,", []string{"a", "b"}},
		{"blank", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseMultipleValues(tt.in))
		})
	}
}

func makeResult(docID string, fields map[string]string) *extract.Result {
	r := extract.NewResult(docID)
	for name, raw := range fields {
		r.Features[name] = &schema.Value{Raw: raw}
	}
	return r
}

func TestDistinctDates(t *testing.T) {
	r := makeResult("d1", map[string]string{
		"chir_date": "12/03/2021, 05/06/2022, 12/03/2021",
	})
	assert.Equal(t, []string{"12/03/2021", "05/06/2022"}, DistinctDates(r, "chir_date"))

	assert.Nil(t, DistinctDates(r, "chm_date_debut"))

	r.Features["rx_date_debut"] = nil
	assert.Nil(t, DistinctDates(r, "rx_date_debut"))
}

func TestDetectMultipleEventsSingleEvent(t *testing.T) {
	r := makeResult("d1", map[string]string{"chir_date": "12/03/2021"})
	rows := DetectMultipleEvents(r)
	require.Len(t, rows, 1)
	assert.Same(t, r, rows[0])
}

func TestDetectMultipleEventsSurgery(t *testing.T) {
	r := makeResult("d1", map[string]string{
		"chir_date": "12/03/2021 puis 05/06/2022",
		"ihc_idh1":  "positif",
	})
	rows := DetectMultipleEvents(r)
	require.Len(t, rows, 2)

	assert.Equal(t, "12/03/2021", rows[0].Features["chir_date"].Raw)
	assert.Equal(t, "05/06/2022", rows[1].Features["chir_date"].Raw)

	// Shared features are copied, not aliased.
	assert.Equal(t, "positif", rows[0].Features["ihc_idh1"].Raw)
	rows[0].Features["ihc_idh1"].Raw = "negatif"
	assert.Equal(t, "positif", rows[1].Features["ihc_idh1"].Raw)

	assert.Contains(t, rows[0].Log,
		"Row duplicated for multiple surgery events: event 1 of 2 (12/03/2021).")
	assert.Contains(t, rows[1].Log,
		"Row duplicated for multiple surgery events: event 2 of 2 (05/06/2022).")
}

func TestDetectMultipleEventsChemoDistributesDrugs(t *testing.T) {
	r := makeResult("d1", map[string]string{
		"chm_date_debut": "01/02/2021, 01/08/2021",
		"chimios":        "temozolomide, lomustine",
	})
	rows := DetectMultipleEvents(r)
	require.Len(t, rows, 2)

	assert.Equal(t, "temozolomide", rows[0].Features["chimios"].Raw)
	assert.Equal(t, "01/02/2021", rows[0].Features["chm_date_debut"].Raw)
	assert.Equal(t, "lomustine", rows[1].Features["chimios"].Raw)
	assert.Equal(t, "01/08/2021", rows[1].Features["chm_date_debut"].Raw)
}

func TestDetectMultipleEventsChemoCountMismatch(t *testing.T) {
	r := makeResult("d1", map[string]string{
		"chm_date_debut": "01/02/2021, 01/08/2021",
		"chimios":        "temozolomide",
	})
	rows := DetectMultipleEvents(r)
	require.Len(t, rows, 2)

	// Ambiguous mapping keeps the original value on every row.
	assert.Equal(t, "temozolomide", rows[0].Features["chimios"].Raw)
	assert.Equal(t, "temozolomide", rows[1].Features["chimios"].Raw)
}

func TestDetectMultipleEventsSurgeryWinsOverChemo(t *testing.T) {
	r := makeResult("d1", map[string]string{
		"chir_date":      "12/03/2021, 05/06/2022",
		"chm_date_debut": "01/02/2021, 01/08/2021, 01/12/2021",
	})
	rows := DetectMultipleEvents(r)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "01/02/2021, 01/08/2021, 01/12/2021",
			row.Features["chm_date_debut"].Raw)
	}
}
