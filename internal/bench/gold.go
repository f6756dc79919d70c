// Package bench evaluates the extraction pipeline against manually annotated
// gold standard documents and writes per-feature metric reports.
package bench

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/common"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// GoldAnnotation is one ground-truth value for a field. SourceSpan, when
// present, records the text passage justifying the annotation.
type GoldAnnotation struct {
	FieldName  string
	Value      string
	SourceSpan string
}

// Matches reports whether a predicted value agrees with the annotation.
// Comparison is case-insensitive after trimming.
func (a GoldAnnotation) Matches(predicted string) bool {
	if a.Value == "" && predicted == "" {
		return true
	}
	if a.Value == "" || predicted == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Value), strings.TrimSpace(predicted))
}

// GoldDocument is the ground truth for a single patient-visit.
type GoldDocument struct {
	DocumentID             string
	PatientID              string
	RawText                string
	DateChir               string
	EvolClinique           string
	HasBioAnnotations      bool
	HasCliniqueAnnotations bool
	Annotations            map[string]GoldAnnotation
}

// AnnotatedFields returns the annotated field names, sorted.
func (d *GoldDocument) AnnotatedFields() []string {
	names := make([]string, 0, len(d.Annotations))
	for name := range d.Annotations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InScope reports whether a field participates in scoring for this
// document, per its has_bio/has_clinique flags. Unknown fields always score.
func (d *GoldDocument) InScope(fieldName string) bool {
	f, err := schema.FieldByName(fieldName)
	if err != nil {
		return true
	}
	if f.Clinical {
		return d.HasCliniqueAnnotations
	}
	return d.HasBioAnnotations
}

type goldAnnotationJSON struct {
	Value      any    `json:"value"`
	SourceSpan string `json:"source_span,omitempty"`
}

type goldDocumentJSON struct {
	DocumentID             string                        `json:"document_id"`
	PatientID              string                        `json:"patient_id"`
	RawText                string                        `json:"raw_text,omitempty"`
	DateChir               string                        `json:"date_chir,omitempty"`
	EvolClinique           string                        `json:"evol_clinique,omitempty"`
	HasBioAnnotations      bool                          `json:"has_bio_annotations"`
	HasCliniqueAnnotations bool                          `json:"has_clinique_annotations"`
	Annotations            map[string]goldAnnotationJSON `json:"annotations"`
}

func valueString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "oui"
		}
		return "non"
	default:
		return fmt.Sprintf("%v", t)
	}
}

// LoadGoldDocument reads a single gold standard JSON file.
func LoadGoldDocument(path string) (*GoldDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var parsed goldDocumentJSON
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse gold document %s: %w", path, err)
	}
	if parsed.DocumentID == "" {
		return nil, fmt.Errorf("gold document %s: document_id is required", path)
	}
	if parsed.DateChir != "" {
		v := common.NewValidator().Field("date_chir", parsed.DateChir, common.DateDDMMYYYY)
		if err := v.Error(); err != nil {
			return nil, fmt.Errorf("gold document %s: %w", path, err)
		}
	}

	doc := &GoldDocument{
		DocumentID:             parsed.DocumentID,
		PatientID:              parsed.PatientID,
		RawText:                parsed.RawText,
		DateChir:               parsed.DateChir,
		EvolClinique:           parsed.EvolClinique,
		HasBioAnnotations:      parsed.HasBioAnnotations,
		HasCliniqueAnnotations: parsed.HasCliniqueAnnotations,
		Annotations:            make(map[string]GoldAnnotation, len(parsed.Annotations)),
	}
	for name, ann := range parsed.Annotations {
		doc.Annotations[name] = GoldAnnotation{
			FieldName:  name,
			Value:      valueString(ann.Value),
			SourceSpan: ann.SourceSpan,
		}
	}
	return doc, nil
}

// LoadGoldStandard loads every gold document in a directory, sorted by file
// name. manifest.json is skipped.
func LoadGoldStandard(dir string) ([]*GoldDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("gold standard directory not found: %s", dir)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || e.Name() == "manifest.json" {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	docs := make([]*GoldDocument, 0, len(names))
	for _, name := range names {
		doc, err := LoadGoldDocument(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Manifest summarizes the gold standard entries without their annotations.
type Manifest struct {
	Entries []ManifestEntry `json:"entries"`
}

type ManifestEntry struct {
	DocumentID   string `json:"document_id"`
	PatientID    string `json:"patient_id"`
	File         string `json:"file"`
	NAnnotations int    `json:"n_annotations,omitempty"`
}

// LoadManifest reads the manifest.json summary from a gold directory.
func LoadManifest(dir string) (*Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	if err != nil {
		return nil, fmt.Errorf("manifest not found in %s: %w", dir, err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}
