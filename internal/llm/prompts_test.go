package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

func TestGetPrompt(t *testing.T) {
	p, err := GetPrompt("ihc")
	require.NoError(t, err)
	assert.NotEmpty(t, p.System)
	assert.Contains(t, p.UserTemplate, "{section_text}")
	assert.Contains(t, p.Fields, "ihc_idh1")

	_, err = GetPrompt("unknown")
	assert.Error(t, err)
}

func TestBuildUserPrompt(t *testing.T) {
	p := PromptConfig{UserTemplate: "### Texte :\n{section_text}\n"}
	got := p.BuildUserPrompt("IDH1 positif")
	assert.Equal(t, "### Texte :\nIDH1 positif\n", got)
}

func TestPromptRegistryMatchesFeatureGroups(t *testing.T) {
	for group := range schema.FeatureGroups {
		_, err := GetPrompt(group)
		assert.NoError(t, err, "group %q has no prompt", group)
	}
	for group, p := range PromptRegistry {
		require.Contains(t, schema.FeatureGroups, group)
		for _, f := range p.Fields {
			_, err := schema.FieldByName(f)
			assert.NoError(t, err, "prompt %q targets unknown field %q", group, f)
		}
	}
}
