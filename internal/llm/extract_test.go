package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

type scriptedChat struct {
	responses map[string]string // keyed by a substring of the system prompt
	calls     []ChatRequest
}

func (s *scriptedChat) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.calls = append(s.calls, req)
	for key, resp := range s.responses {
		if strings.Contains(req.System, key) {
			return &ChatResponse{Content: resp}, nil
		}
	}
	return &ChatResponse{Content: `{"values": {}, "_source": {}}`}, nil
}

func TestExtractorRunSkipsWhenTierOneComplete(t *testing.T) {
	chat := &scriptedChat{}
	e := NewExtractor(chat, nil)

	already := map[string]*schema.Value{"ihc_idh1": schema.RuleValue("positif", "", "")}
	got := e.Run(context.Background(), "texte", nil, []string{"ihc_idh1"}, already)

	assert.Empty(t, got)
	assert.Empty(t, chat.calls)
}

func TestExtractorRunExtractsRemaining(t *testing.T) {
	chat := &scriptedChat{responses: map[string]string{
		"immunohistochimie": `{"values": {"ihc_idh1": "positif", "ihc_p53": null}, "_source": {"ihc_idh1": "IDH1 positif"}}`,
	}}
	e := NewExtractor(chat, nil)

	sections := map[string]string{"ihc": "IDH1 positif, p53 non contributif"}
	got := e.Run(context.Background(), "full", sections, []string{"ihc_idh1", "ihc_p53"}, nil)

	require.Contains(t, got, "ihc_idh1")
	assert.Equal(t, "positif", got["ihc_idh1"].Raw)
	assert.Equal(t, "IDH1 positif", got["ihc_idh1"].SourceSpan)
	assert.Equal(t, schema.TierLLM, got["ihc_idh1"].Tier)
	assert.Equal(t, "ihc", got["ihc_idh1"].Section)

	// Nulls never become values.
	assert.NotContains(t, got, "ihc_p53")

	require.Len(t, chat.calls, 1)
	assert.Contains(t, chat.calls[0].Prompt, "IDH1 positif, p53 non contributif")
	assert.Zero(t, chat.calls[0].Temperature)
}

func TestExtractorRunSanitizesBareFieldMap(t *testing.T) {
	chat := &scriptedChat{responses: map[string]string{
		"immunohistochimie": `{"ihc_idh1": "negatif"}`,
	}}
	e := NewExtractor(chat, nil)

	got := e.Run(context.Background(), "texte", map[string]string{"ihc": "IDH1 négatif sur la biopsie"}, []string{"ihc_idh1"}, nil)

	require.Contains(t, got, "ihc_idh1")
	assert.Equal(t, "negatif", got["ihc_idh1"].Raw)
}

func TestNormalizeLLMValue(t *testing.T) {
	tests := []struct {
		name  string
		field string
		raw   any
		want  string
		keep  bool
	}{
		{"nil", "ihc_idh1", nil, "", false},
		{"bool true", "histo_necrose", true, "oui", true},
		{"bool false", "histo_necrose", false, "non", true},
		{"integer field", "histo_mitoses", float64(7), "7", true},
		{"string field number", "ihc_ki67", float64(15), "15", true},
		{"null like string", "ihc_idh1", "N/A", "", false},
		{"accent fold", "mol_idh1", "muté", "mute", true},
		{"plain string", "diag_histologique", " glioblastome ", "glioblastome", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := normalizeLLMValue(tt.field, tt.raw)
			assert.Equal(t, tt.keep, keep)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectSectionText(t *testing.T) {
	sections := map[string]string{
		"ihc":        "IDH1 positif",
		"conclusion": "glioblastome grade 4",
	}

	text, name := selectSectionText(sections, "ihc", "tout le document")
	assert.Equal(t, "IDH1 positif", text)
	assert.Equal(t, "ihc", name)

	text, name = selectSectionText(sections, "treatment", "tout le document")
	assert.Equal(t, "tout le document", text)
	assert.Empty(t, name)
}
