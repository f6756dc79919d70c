package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/constants"
)

// DocumentTypes are the recognized report categories.
var DocumentTypes = constants.AsStringSlice()

// Routing holds the extractable field subsets for one document type.
type Routing struct {
	Bio      []string
	Clinique []string
}

func matchPattern(fields []FieldDef, pattern string) []string {
	if strings.HasSuffix(pattern, "*") {
		prefix := strings.TrimSuffix(pattern, "*")
		var out []string
		for _, f := range fields {
			if strings.HasPrefix(f.Name, prefix) {
				out = append(out, f.Name)
			}
		}
		return out
	}
	for _, f := range fields {
		if f.Name == pattern {
			return []string{f.Name}
		}
	}
	return nil
}

func resolvePatterns(fields []FieldDef, patterns ...string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, p := range patterns {
		for _, name := range matchPattern(fields, p) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

var rcpBioFields = resolvePatterns(BioFields,
	"diag_histologique", "diag_integre", "classification_oms", "grade",
	"ihc_*", "mol_*", "ch*", "ampli_*", "fusion_*",
	"histo_necrose", "histo_pec", "histo_mitoses",
)

var rcpCliniqueFields = resolvePatterns(ClinicalFields,
	"nip", "sexe", "date_de_naissance",
	"chimios", "chm_*",
	"rx_*",
	"chir_date", "type_chirurgie",
	"ik_clinique",
	"tumeur_lateralite", "tumeur_position",
	"evol_clinique",
	"progress_clinique", "progress_radiologique", "date_progression",
)

var radiologyCliniqueFields = resolvePatterns(ClinicalFields,
	"tumeur_lateralite", "tumeur_position",
	"exam_radio_date_decouverte",
	"contraste_1er_symptome", "oedeme_1er_symptome", "calcif_1er_symptome",
	"progress_radiologique",
)

// FeatureRouting maps a document type to its extractable field subsets.
var FeatureRouting = map[string]Routing{
	"anapath": {
		Bio: BioFieldNames(),
	},
	"molecular_report": {
		Bio: resolvePatterns(BioFields, "mol_*", "ch*", "ampli_*", "fusion_*", "mol_mgmt"),
	},
	"consultation": {
		Clinique: ClinicalFieldNames(),
	},
	"rcp": {
		Bio:      rcpBioFields,
		Clinique: rcpCliniqueFields,
	},
	"radiology": {
		Clinique: radiologyCliniqueFields,
	},
}

// ExtractableFields returns the sorted, deduplicated field names extractable
// from the given document type.
func ExtractableFields(docType string) ([]string, error) {
	routing, ok := FeatureRouting[docType]
	if !ok {
		return nil, fmt.Errorf("unknown document type: %q (expected one of %v)", docType, DocumentTypes)
	}
	seen := map[string]struct{}{}
	var out []string
	for _, name := range append(append([]string{}, routing.Bio...), routing.Clinique...) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// FeatureGroups organizes fields into the prompt groups used for tier-2
// extraction.
var FeatureGroups = map[string][]string{
	"ihc":       resolvePatterns(BioFields, "ihc_*"),
	"molecular": resolvePatterns(BioFields, "mol_*"),
	"chromosomal": append(append(
		resolvePatterns(BioFields, "ch*"),
		resolvePatterns(BioFields, "ampli_*")...),
		resolvePatterns(BioFields, "fusion_*")...),
	"diagnosis": resolvePatterns(BioFields,
		"diag_histologique", "diag_integre", "classification_oms", "grade",
		"histo_necrose", "histo_pec", "histo_mitoses",
	),
	"demographics": resolvePatterns(ClinicalFields,
		"nip", "date_de_naissance", "sexe", "activite_professionnelle",
		"antecedent_tumoral", "neuroncologue", "neurochirurgien",
		"radiotherapeute", "localisation_radiotherapie", "localisation_chir",
	),
	"symptoms": append(
		resolvePatterns(ClinicalFields,
			"date_1er_symptome", "epilepsie_1er_symptome",
			"ceph_hic_1er_symptome", "deficit_1er_symptome",
			"cognitif_1er_symptome", "autre_trouble_1er_symptome",
			"exam_radio_date_decouverte",
			"contraste_1er_symptome", "oedeme_1er_symptome", "calcif_1er_symptome",
		),
		resolvePatterns(ClinicalFields,
			"epilepsie", "ceph_hic", "deficit", "cognitif", "autre_trouble",
			"ik_clinique",
		)...),
	"treatment": resolvePatterns(ClinicalFields,
		"chimios", "chm_*",
		"chir_date", "type_chirurgie",
		"rx_*",
		"anti_epileptiques", "essai_therapeutique",
		"corticoides", "optune",
	),
	"evolution": resolvePatterns(ClinicalFields,
		"dn_date", "evol_clinique",
		"progress_clinique", "progress_radiologique", "date_progression",
		"tumeur_lateralite", "tumeur_position",
		"date_deces", "infos_deces",
	),
}

// GroupNames returns the feature group names in a stable order.
func GroupNames() []string {
	names := make([]string, 0, len(FeatureGroups))
	for name := range FeatureGroups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
