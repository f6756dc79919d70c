// Package schema defines the 102 clinical and biological extraction fields,
// their controlled vocabularies, document-type routing, and the JSON Schemas
// used for constrained LLM decoding.
package schema

import "fmt"

// Kind is the data-type tag for a field.
type Kind string

const (
	KindString      Kind = "string"
	KindInteger     Kind = "integer"
	KindFloat       Kind = "float"
	KindDate        Kind = "date" // DD/MM/YYYY or abbreviated
	KindCategorical Kind = "categorical"
	KindFreeText    Kind = "free_text"
)

// FieldDef is the metadata for a single schema field.
type FieldDef struct {
	Name     string
	Label    string
	Kind     Kind
	Vocab    []string // nil means unconstrained
	Group    string
	Clinical bool
}

// BioFields lists the 54 biological fields in schema order.
var BioFields = []FieldDef{
	// Identifiers / context
	{Name: "nip", Label: "NIP (patient ID)", Kind: KindString, Group: "identifiers"},
	{Name: "date_chir", Label: "Date chirurgie", Kind: KindDate, Group: "identifiers"},
	{Name: "num_labo", Label: "Numéro laboratoire", Kind: KindString, Group: "identifiers"},

	// Diagnosis
	{Name: "diag_histologique", Label: "Diagnostic histologique", Kind: KindFreeText, Group: "diagnosis"},
	{Name: "diag_integre", Label: "Diagnostic intégré", Kind: KindFreeText, Group: "diagnosis"},
	{Name: "classification_oms", Label: "Classification OMS", Kind: KindCategorical, Group: "diagnosis", Vocab: VocabWHO},
	{Name: "grade", Label: "Grade OMS", Kind: KindInteger, Group: "diagnosis", Vocab: VocabGrade},

	// IHC
	{Name: "ihc_idh1", Label: "IHC IDH1", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_p53", Label: "IHC p53", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_atrx", Label: "IHC ATRX", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_fgfr3", Label: "IHC FGFR3", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_braf", Label: "IHC BRAF", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_hist_h3k27m", Label: "IHC H3K27M", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_hist_h3k27me3", Label: "IHC H3K27me3", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_egfr_hirsch", Label: "IHC EGFR (Hirsch / status)", Kind: KindString, Group: "ihc"},
	{Name: "ihc_gfap", Label: "IHC GFAP", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_olig2", Label: "IHC Olig2", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},
	{Name: "ihc_ki67", Label: "IHC Ki67 (%)", Kind: KindString, Group: "ihc"}, // "15-20", "5", "<5%"
	{Name: "ihc_mmr", Label: "IHC MMR", Kind: KindCategorical, Group: "ihc", Vocab: VocabIHC},

	// Histology assessment
	{Name: "histo_necrose", Label: "Nécrose", Kind: KindCategorical, Group: "histology", Vocab: VocabBinary},
	{Name: "histo_pec", Label: "Prolifération endothéliocapillaire", Kind: KindCategorical, Group: "histology", Vocab: VocabBinary},
	{Name: "histo_mitoses", Label: "Mitoses (count)", Kind: KindInteger, Group: "histology"},

	// Molecular biology
	{Name: "mol_idh1", Label: "IDH1 moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_idh2", Label: "IDH2 moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_tert", Label: "TERT moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_CDKN2A", Label: "CDKN2A moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_h3f3a", Label: "H3F3A moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_hist1h3b", Label: "HIST1H3B moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_braf", Label: "BRAF moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_mgmt", Label: "MGMT méthylation", Kind: KindString, Group: "molecular"},
	{Name: "mol_fgfr1", Label: "FGFR1 moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_egfr_mut", Label: "EGFR mutation", Kind: KindString, Group: "molecular"},
	{Name: "mol_prkca", Label: "PRKCA moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_p53", Label: "TP53 moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_pten", Label: "PTEN moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_cic", Label: "CIC moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_fubp1", Label: "FUBP1 moléculaire", Kind: KindString, Group: "molecular"},
	{Name: "mol_atrx", Label: "ATRX moléculaire", Kind: KindString, Group: "molecular"},

	// Chromosomal alterations
	{Name: "ch1p", Label: "1p", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch19q", Label: "19q", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch10p", Label: "10p", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch10q", Label: "10q", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch7p", Label: "7p", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch7q", Label: "7q", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch9p", Label: "9p", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},
	{Name: "ch9q", Label: "9q", Kind: KindCategorical, Group: "chromosomal", Vocab: VocabChromosomal},

	// Amplifications
	{Name: "ampli_mdm2", Label: "Amplification MDM2", Kind: KindCategorical, Group: "amplification", Vocab: VocabBinary},
	{Name: "ampli_cdk4", Label: "Amplification CDK4", Kind: KindCategorical, Group: "amplification", Vocab: VocabBinary},
	{Name: "ampli_egfr", Label: "Amplification EGFR", Kind: KindCategorical, Group: "amplification", Vocab: VocabBinary},
	{Name: "ampli_met", Label: "Amplification MET", Kind: KindCategorical, Group: "amplification", Vocab: VocabBinary},
	{Name: "ampli_mdm4", Label: "Amplification MDM4", Kind: KindCategorical, Group: "amplification", Vocab: VocabBinary},

	// Fusions
	{Name: "fusion_fgfr", Label: "Fusion FGFR", Kind: KindCategorical, Group: "fusion", Vocab: VocabBinary},
	{Name: "fusion_ntrk", Label: "Fusion NTRK", Kind: KindCategorical, Group: "fusion", Vocab: VocabBinary},
	{Name: "fusion_autre", Label: "Fusion autre", Kind: KindCategorical, Group: "fusion", Vocab: VocabBinary},
}

// ClinicalFields lists the 48 clinical fields in schema order.
var ClinicalFields = []FieldDef{
	// Demographics
	{Name: "nip", Label: "NIP (patient ID)", Kind: KindString, Group: "demographics", Clinical: true},
	{Name: "date_de_naissance", Label: "Date de naissance", Kind: KindDate, Group: "demographics", Clinical: true},
	{Name: "sexe", Label: "Sexe", Kind: KindCategorical, Group: "demographics", Vocab: VocabSex, Clinical: true},
	{Name: "activite_professionnelle", Label: "Activité professionnelle", Kind: KindFreeText, Group: "demographics", Clinical: true},
	{Name: "antecedent_tumoral", Label: "Antécédent tumoral", Kind: KindCategorical, Group: "demographics", Vocab: VocabBinary, Clinical: true},

	// Care team
	{Name: "neuroncologue", Label: "Neuro-oncologue", Kind: KindFreeText, Group: "care_team", Clinical: true},
	{Name: "neurochirurgien", Label: "Neurochirurgien", Kind: KindFreeText, Group: "care_team", Clinical: true},
	{Name: "radiotherapeute", Label: "Radiothérapeute", Kind: KindFreeText, Group: "care_team", Clinical: true},
	{Name: "localisation_radiotherapie", Label: "Localisation radiothérapie", Kind: KindFreeText, Group: "care_team", Clinical: true},
	{Name: "localisation_chir", Label: "Localisation chirurgie", Kind: KindFreeText, Group: "care_team", Clinical: true},

	// Outcome
	{Name: "date_deces", Label: "Date décès", Kind: KindDate, Group: "outcome", Clinical: true},
	{Name: "infos_deces", Label: "Infos décès", Kind: KindFreeText, Group: "outcome", Clinical: true},

	// First symptoms
	{Name: "date_1er_symptome", Label: "Date 1er symptôme", Kind: KindDate, Group: "first_symptoms", Clinical: true},
	{Name: "epilepsie_1er_symptome", Label: "Épilepsie 1er symptôme", Kind: KindCategorical, Group: "first_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "ceph_hic_1er_symptome", Label: "Céphalées/HTIC 1er symptôme", Kind: KindCategorical, Group: "first_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "deficit_1er_symptome", Label: "Déficit 1er symptôme", Kind: KindCategorical, Group: "first_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "cognitif_1er_symptome", Label: "Cognitif 1er symptôme", Kind: KindCategorical, Group: "first_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "autre_trouble_1er_symptome", Label: "Autre trouble 1er symptôme", Kind: KindCategorical, Group: "first_symptoms", Vocab: VocabBinary, Clinical: true},

	// Radiology at discovery
	{Name: "exam_radio_date_decouverte", Label: "Date découverte radiologique", Kind: KindDate, Group: "radiology", Clinical: true},
	{Name: "contraste_1er_symptome", Label: "Prise de contraste initiale", Kind: KindCategorical, Group: "radiology", Vocab: VocabBinary, Clinical: true},
	{Name: "oedeme_1er_symptome", Label: "Œdème initial", Kind: KindCategorical, Group: "radiology", Vocab: VocabBinary, Clinical: true},
	{Name: "calcif_1er_symptome", Label: "Calcification initiale", Kind: KindCategorical, Group: "radiology", Vocab: VocabBinary, Clinical: true},

	// Tumour location
	{Name: "tumeur_lateralite", Label: "Latéralité tumeur", Kind: KindCategorical, Group: "tumour_location", Vocab: VocabLaterality, Clinical: true},
	{Name: "tumeur_position", Label: "Position tumeur", Kind: KindFreeText, Group: "tumour_location", Clinical: true},

	// Clinical timepoint
	{Name: "dn_date", Label: "Date dernière nouvelle", Kind: KindDate, Group: "evolution", Clinical: true},
	{Name: "evol_clinique", Label: "Évolution clinique", Kind: KindString, Group: "evolution", Clinical: true}, // see IsValidEvolution

	// Treatment: chemotherapy
	{Name: "chimios", Label: "Chimiothérapie(s)", Kind: KindFreeText, Group: "treatment_chemo", Clinical: true},
	{Name: "chm_date_debut", Label: "Date début chimio", Kind: KindDate, Group: "treatment_chemo", Clinical: true},
	{Name: "chm_date_fin", Label: "Date fin chimio", Kind: KindDate, Group: "treatment_chemo", Clinical: true},
	{Name: "chm_cycles", Label: "Nombre cycles chimio", Kind: KindInteger, Group: "treatment_chemo", Clinical: true},

	// Current clinical state
	{Name: "ik_clinique", Label: "Indice de Karnofsky", Kind: KindInteger, Group: "clinical_state", Clinical: true},
	{Name: "progress_clinique", Label: "Progression clinique", Kind: KindCategorical, Group: "clinical_state", Vocab: VocabBinary, Clinical: true},
	{Name: "progress_radiologique", Label: "Progression radiologique", Kind: KindCategorical, Group: "clinical_state", Vocab: VocabBinary, Clinical: true},
	{Name: "date_progression", Label: "Date progression", Kind: KindDate, Group: "clinical_state", Clinical: true},

	// Current symptoms
	{Name: "epilepsie", Label: "Épilepsie actuelle", Kind: KindCategorical, Group: "current_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "ceph_hic", Label: "Céphalées/HTIC actuelle", Kind: KindCategorical, Group: "current_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "deficit", Label: "Déficit actuel", Kind: KindCategorical, Group: "current_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "cognitif", Label: "Trouble cognitif", Kind: KindCategorical, Group: "current_symptoms", Vocab: VocabBinary, Clinical: true},
	{Name: "autre_trouble", Label: "Autre trouble", Kind: KindFreeText, Group: "current_symptoms", Clinical: true},

	// Adjunct medications
	{Name: "anti_epileptiques", Label: "Anti-épileptiques", Kind: KindCategorical, Group: "adjunct", Vocab: VocabBinary, Clinical: true},
	{Name: "essai_therapeutique", Label: "Essai thérapeutique", Kind: KindCategorical, Group: "adjunct", Vocab: VocabBinary, Clinical: true},

	// Surgery
	{Name: "chir_date", Label: "Date chirurgie", Kind: KindDate, Group: "surgery", Clinical: true},
	{Name: "type_chirurgie", Label: "Type chirurgie", Kind: KindCategorical, Group: "surgery", Vocab: VocabSurgery, Clinical: true},

	// Treatment: radiotherapy
	{Name: "rx_date_debut", Label: "Date début radiothérapie", Kind: KindDate, Group: "treatment_radio", Clinical: true},
	{Name: "rx_date_fin", Label: "Date fin radiothérapie", Kind: KindDate, Group: "treatment_radio", Clinical: true},
	{Name: "rx_dose", Label: "Dose radiothérapie (Gy)", Kind: KindString, Group: "treatment_radio", Clinical: true}, // "60", "non", "en attente"

	// Other adjuncts
	{Name: "corticoides", Label: "Corticoïdes", Kind: KindCategorical, Group: "adjunct", Vocab: VocabBinary, Clinical: true},
	{Name: "optune", Label: "Optune (TTFields)", Kind: KindCategorical, Group: "adjunct", Vocab: VocabBinary, Clinical: true},
}

var fieldsByName = func() map[string]FieldDef {
	m := make(map[string]FieldDef, len(BioFields)+len(ClinicalFields))
	for _, f := range BioFields {
		m[f.Name] = f
	}
	for _, f := range ClinicalFields {
		m[f.Name] = f
	}
	return m
}()

// FieldByName returns the definition for a field name.
func FieldByName(name string) (FieldDef, error) {
	f, ok := fieldsByName[name]
	if !ok {
		return FieldDef{}, fmt.Errorf("unknown field: %q", name)
	}
	return f, nil
}

// BioFieldNames returns the names of all biological fields in schema order.
func BioFieldNames() []string {
	names := make([]string, len(BioFields))
	for i, f := range BioFields {
		names[i] = f.Name
	}
	return names
}

// ClinicalFieldNames returns the names of all clinical fields in schema order.
func ClinicalFieldNames() []string {
	names := make([]string, len(ClinicalFields))
	for i, f := range ClinicalFields {
		names[i] = f.Name
	}
	return names
}

// AllFieldNames returns every field name once, biological first.
func AllFieldNames() []string {
	seen := make(map[string]struct{}, len(fieldsByName))
	names := make([]string, 0, len(fieldsByName))
	for _, f := range BioFields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	for _, f := range ClinicalFields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		seen[f.Name] = struct{}{}
		names = append(names, f.Name)
	}
	return names
}
