package schema

import "fmt"

// fieldSchema returns the JSON Schema type object for one field. Vocab fields
// become an enum that also admits null so the model can abstain.
func fieldSchema(f FieldDef) map[string]any {
	var base map[string]any
	switch {
	case len(f.Vocab) > 0:
		enum := make([]any, 0, len(f.Vocab)+1)
		for _, v := range f.Vocab {
			enum = append(enum, v)
		}
		enum = append(enum, nil)
		base = map[string]any{"enum": enum}
	case f.Kind == KindInteger:
		base = map[string]any{"type": []string{"integer", "null"}}
	case f.Kind == KindFloat:
		base = map[string]any{"type": []string{"number", "null"}}
	default:
		base = map[string]any{"type": []string{"string", "null"}}
	}
	if f.Label != "" {
		base["description"] = f.Label
	} else {
		base["description"] = f.Name
	}
	return base
}

// BuildGroupSchema builds the JSON Schema object for a set of field names.
// The schema carries a parallel "_source" object so the model can cite the
// exact text span justifying each value. Suitable for the Ollama "format"
// parameter and for local validation.
func BuildGroupSchema(fieldNames []string) map[string]any {
	valueProps := map[string]any{}
	sourceProps := map[string]any{}
	required := make([]string, 0, len(fieldNames))

	for _, name := range fieldNames {
		f, ok := fieldsByName[name]
		if !ok {
			continue
		}
		valueProps[name] = fieldSchema(f)
		sourceProps[name] = map[string]any{
			"type":        []string{"string", "null"},
			"description": "Exact source text span for " + name,
		}
		required = append(required, name)
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"values": map[string]any{
				"type":       "object",
				"properties": valueProps,
				"required":   required,
			},
			"_source": map[string]any{
				"type":        "object",
				"properties":  sourceProps,
				"description": "Exact text spans from the document justifying each value.",
			},
		},
		"required": []string{"values", "_source"},
	}
}

// GroupSchema returns the JSON Schema for a named feature group.
func GroupSchema(group string) (map[string]any, error) {
	fields, ok := FeatureGroups[group]
	if !ok {
		return nil, fmt.Errorf("unknown feature group: %q (available: %v)", group, GroupNames())
	}
	return BuildGroupSchema(fields), nil
}
