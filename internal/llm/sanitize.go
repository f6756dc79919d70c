package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
)

// NormalizeGroupJSON reshapes a model response so it can pass schema
// validation:
//   - wraps a bare field map under "values" when the envelope is missing
//   - guarantees a "_source" object
//   - drops keys outside the target field set
//   - backfills missing target fields with null so the schema's required
//     list is satisfied
//
// Returns the cleaned document and the list of altered keys.
func NormalizeGroupJSON(raw []byte, targetFields []string, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	allowed := make(map[string]struct{}, len(targetFields))
	for _, f := range targetFields {
		allowed[f] = struct{}{}
	}

	var touched []string

	values, hasValues := m["values"].(map[string]any)
	if !hasValues {
		// Bare field map: everything except _source becomes the values object.
		values = map[string]any{}
		for k, v := range m {
			if k == "_source" {
				continue
			}
			values[k] = v
			touched = append(touched, k+"->values."+k)
		}
	}

	sources, _ := m["_source"].(map[string]any)
	if sources == nil {
		sources = map[string]any{}
	}

	for k := range values {
		if _, ok := allowed[k]; !ok {
			delete(values, k)
			touched = append(touched, "dropped:"+k)
		}
	}
	for k := range sources {
		if _, ok := allowed[k]; !ok {
			delete(sources, k)
			touched = append(touched, "dropped:_source."+k)
		}
	}

	for _, f := range targetFields {
		if _, ok := values[f]; !ok {
			values[f] = nil
			touched = append(touched, "null:"+f)
		}
	}

	sort.Strings(touched)
	out, err := json.Marshal(map[string]any{
		"values":  values,
		"_source": sources,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: encode: %w", err)
	}
	return out, touched, nil
}
