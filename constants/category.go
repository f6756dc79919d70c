package constants

import (
	"strings"
)

// DocumentType is the canonical class of a clinical report.
type DocumentType string

const (
	Consultation    DocumentType = "consultation"
	Anapath         DocumentType = "anapath"
	RCP             DocumentType = "rcp"
	MolecularReport DocumentType = "molecular_report"
	Radiology       DocumentType = "radiology"
)

var allDocumentTypes = []DocumentType{
	Consultation,
	Anapath,
	RCP,
	MolecularReport,
	Radiology,
}

func AsStringSlice() []string {
	result := make([]string, len(allDocumentTypes))
	for i, dt := range allDocumentTypes {
		result[i] = string(dt)
	}
	return result
}

// Canonicalize maps free-form document type labels, as found in file names
// or user input, onto the canonical types. Falls back to consultation.
func Canonicalize(input string) (DocumentType, bool) {
	if input == "" {
		return Consultation, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]DocumentType{
		"cr consultation":      Consultation,
		"consult":              Consultation,
		"anatomopathologie":    Anapath,
		"anatomo-pathologie":   Anapath,
		"cr anapath":           Anapath,
		"biopsie":              Anapath,
		"reunion":              RCP,
		"biologie moleculaire": MolecularReport,
		"bio mol":              MolecularReport,
		"sequencage":           MolecularReport,
		"ngs":                  MolecularReport,
		"irm":                  Radiology,
		"imagerie":             Radiology,
		"cr irm":               Radiology,
		"scanner":              Radiology,
	}

	if dt, ok := synonyms[normalized]; ok {
		return dt, true
	}

	// check if it matches any canonical type string
	for _, dt := range allDocumentTypes {
		if normalized == string(dt) {
			return dt, true
		}
	}

	return Consultation, false
}
