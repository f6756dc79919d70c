package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// maxSectionChars bounds the excerpt sent per group, roughly 1000 tokens.
const maxSectionChars = 4000

// sectionToGroups maps detected section names to the feature groups most
// likely answered from them.
var sectionToGroups = map[string][]string{
	"ihc":           {"ihc"},
	"molecular":     {"molecular"},
	"chromosomal":   {"chromosomal"},
	"macroscopy":    {"diagnosis"},
	"microscopy":    {"diagnosis"},
	"conclusion":    {"ihc", "molecular", "chromosomal", "diagnosis"},
	"history":       {"demographics", "symptoms"},
	"treatment":     {"treatment"},
	"clinical_exam": {"symptoms"},
	"radiology":     {"evolution"},
	"full_text": {
		"ihc", "molecular", "chromosomal", "diagnosis",
		"demographics", "symptoms", "treatment", "evolution",
	},
}

// Extractor runs tier-2 extraction: one schema-constrained chat call per
// feature group that still has unextracted fields.
type Extractor struct {
	client ChatClient
	logger *slog.Logger
}

// NewExtractor builds the tier-2 extractor.
func NewExtractor(client ChatClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{client: client, logger: logger}
}

func groupsForRemaining(remaining map[string]struct{}) map[string][]string {
	out := map[string][]string{}
	for group, fields := range schema.FeatureGroups {
		var needed []string
		for _, f := range fields {
			if _, ok := remaining[f]; ok {
				needed = append(needed, f)
			}
		}
		if len(needed) > 0 {
			out[group] = needed
		}
	}
	return out
}

func selectSectionText(sections map[string]string, group, fullText string) (string, string) {
	for sectionName, groups := range sectionToGroups {
		text, present := sections[sectionName]
		if !present || strings.TrimSpace(text) == "" {
			continue
		}
		for _, g := range groups {
			if g == group {
				return text, sectionName
			}
		}
	}
	if text, ok := sections["full_text"]; ok {
		return text, "full_text"
	}
	return fullText, ""
}

func truncateSection(text string) string {
	if len(text) <= maxSectionChars {
		return text
	}
	return text[:maxSectionChars] + "\n[... texte tronqué ...]"
}

// normalizeLLMValue turns an arbitrary JSON value into the string form the
// rest of the pipeline works with. The second return is false for nulls and
// null-like strings.
func normalizeLLMValue(fieldName string, raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case bool:
		if v {
			return "oui", true
		}
		return "non", true
	case float64:
		if f, err := schema.FieldByName(fieldName); err == nil && f.Kind == schema.KindInteger {
			return strconv.Itoa(int(v)), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case string:
		val := strings.TrimSpace(v)
		switch strings.ToLower(val) {
		case "", "null", "none", "n/a", "na":
			return "", false
		}
		accents := map[string]string{
			"négatif":     "negatif",
			"négative":    "negatif",
			"negative":    "negatif",
			"muté":        "mute",
			"mutée":       "mute",
			"méthylé":     "methyle",
			"non méthylé": "non methyle",
			"non methylé": "non methyle",
		}
		if canonical, ok := accents[strings.ToLower(val)]; ok {
			return canonical, true
		}
		return val, true
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func (e *Extractor) parseGroupResponse(ctx context.Context, content []byte, group string, targetFields []string, section string) map[string]*schema.Value {
	var doc struct {
		Values map[string]any `json:"values"`
		Source map[string]any `json:"_source"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		e.logger.WarnContext(ctx, "llm.extract.parse_error", "group", group, "error", err)
		return nil
	}
	values := doc.Values
	if values == nil {
		// No envelope, treat the top level as the field map.
		if err := json.Unmarshal(content, &values); err != nil {
			return nil
		}
		delete(values, "_source")
	}

	results := map[string]*schema.Value{}
	for _, field := range targetFields {
		raw, present := values[field]
		if !present {
			continue
		}
		normalized, keep := normalizeLLMValue(field, raw)
		if !keep {
			continue
		}
		span := ""
		if s, ok := doc.Source[field].(string); ok {
			span = s
		}
		results[field] = schema.LLMValue(normalized, span, section)
	}
	return results
}

// Run extracts the fields of featureSubset that tier 1 left unfilled. The
// returned map only contains newly extracted fields.
func (e *Extractor) Run(ctx context.Context, text string, sections map[string]string, featureSubset []string, already map[string]*schema.Value) map[string]*schema.Value {
	remaining := map[string]struct{}{}
	for _, f := range featureSubset {
		if _, done := already[f]; !done {
			remaining[f] = struct{}{}
		}
	}
	if len(remaining) == 0 {
		e.logger.InfoContext(ctx, "llm.extract.skip", "reason", "tier1 complete")
		return map[string]*schema.Value{}
	}

	groupsNeeded := groupsForRemaining(remaining)
	groupNames := make([]string, 0, len(groupsNeeded))
	for name := range groupsNeeded {
		groupNames = append(groupNames, name)
	}
	sort.Strings(groupNames)

	e.logger.InfoContext(ctx, "llm.extract.start",
		"remaining_fields", len(remaining), "groups", groupNames)

	results := map[string]*schema.Value{}

	for _, group := range groupNames {
		fieldsInGroup := groupsNeeded[group]
		prompt, err := GetPrompt(group)
		if err != nil {
			e.logger.WarnContext(ctx, "llm.extract.no_prompt", "group", group)
			continue
		}

		sectionText, sectionName := selectSectionText(sections, group, text)
		userPrompt := prompt.BuildUserPrompt(truncateSection(sectionText))

		groupSchema, err := schema.GroupSchema(group)
		if err != nil {
			groupSchema = nil
		}

		resp, err := e.client.Chat(ctx, ChatRequest{
			System:      prompt.System,
			Prompt:      userPrompt,
			Format:      groupSchema,
			Temperature: 0,
		})
		if err != nil {
			e.logger.ErrorContext(ctx, "llm.extract.chat_error", "group", group, "error", err)
			continue
		}

		content := []byte(strings.TrimSpace(resp.Content))
		if groupSchema != nil {
			if vErr := ValidateJSONAgainstSchema(groupSchema, content); vErr != nil {
				cleaned, touched, sErr := NormalizeGroupJSON(content, prompt.Fields, e.logger)
				if sErr != nil || ValidateJSONAgainstSchema(groupSchema, cleaned) != nil {
					e.logger.WarnContext(ctx, "llm.extract.invalid_response",
						"group", group, "error", vErr)
					continue
				}
				e.logger.WarnContext(ctx, "llm.extract.lenient_sanitize_applied",
					"group", group, "touched", touched)
				content = cleaned
			}
		}

		groupResults := e.parseGroupResponse(ctx, content, group, fieldsInGroup, sectionName)
		for field, v := range groupResults {
			if _, dup := results[field]; dup {
				continue
			}
			if _, done := already[field]; done {
				continue
			}
			results[field] = v
		}

		e.logger.InfoContext(ctx, "llm.extract.group_done",
			"group", group,
			"extracted", len(groupResults),
			"targeted", len(fieldsInGroup),
			"duration_ms", resp.TotalDurationMS())
	}

	return results
}
