package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// Section is one detected document segment, in document order.
type Section struct {
	Name string
	Text string
}

type sectionPattern struct {
	name string
	re   *regexp.Regexp
}

// Strict patterns require the header to sit alone on its line.
var strictSectionPatterns = []sectionPattern{
	{"ihc", regexp.MustCompile(`(?im)^[ \t]*(?:immunohistochimie|\bIHC\b|marqueurs?\s+immuno(?:histochim(?:iques?|ie))?)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"molecular", regexp.MustCompile(`(?im)^[ \t]*(?:biologie\s+mol[eé]culaire|analyse\s+mol[eé]culaire|panel\s+NGS|s[eé]quen[cç]age|r[eé]sultats?\s+mol[eé]culaire)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"chromosomal", regexp.MustCompile(`(?im)^[ \t]*(?:CGH[\s\-]?array|alt[eé]rations?\s+chromosomiques?|profil\s+g[eé]nomique|analyse\s+chromosomique)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"macroscopy", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+macroscopique|macroscopie|description\s+macroscopique)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"microscopy", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+microscopique|microscopie|description\s+microscopique|histologie)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"conclusion", regexp.MustCompile(`(?im)^[ \t]*(?:conclusion|diagnostic|synth[eè]se\s+diagnostique|diagnostic\s+int[eé]gr[eé])[ \t]*[:.\-—–]*[ \t]*$`)},
	{"history", regexp.MustCompile(`(?im)^[ \t]*(?:ant[eé]c[eé]dents?|histoire\s+de\s+la\s+maladie|anamn[eè]se|(?:r[eé]sum[eé]\s+de\s+l')?historique)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"treatment", regexp.MustCompile(`(?im)^[ \t]*(?:traitements?|proposition\s+th[eé]rapeutique|th[eé]rapeutique|protocole\s+th[eé]rapeutique|d[eé]cision\s+th[eé]rapeutique)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"clinical_exam", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+clinique|examen\s+neurologique|interrogatoire|examen\s+physique)[ \t]*[:.\-—–]*[ \t]*$`)},
	{"radiology", regexp.MustCompile(`(?im)^[ \t]*(?:imagerie|IRM(?:\s+c[eé]r[eé]brale)?|scanner(?:\s+c[eé]r[eé]bral)?|radiologie|bilan\s+radiologique|compte[\s\-]rendu\s+radiologique)[ \t]*[:.\-—–]*[ \t]*$`)},
}

// Lenient patterns are the fallback when no strict header matches: the
// keyword still has to start a line but may be followed by content.
var lenientSectionPatterns = []sectionPattern{
	{"ihc", regexp.MustCompile(`(?im)^[ \t]*(?:immunohistochimie|\bIHC\b|marqueurs?\s+immuno)`)},
	{"molecular", regexp.MustCompile(`(?im)^[ \t]*(?:biologie\s+mol[eé]culaire|analyse\s+mol[eé]culaire|panel\s+NGS|s[eé]quen[cç]age)`)},
	{"chromosomal", regexp.MustCompile(`(?im)^[ \t]*(?:CGH[\s\-]?array|alt[eé]rations?\s+chromosomiques?|profil\s+g[eé]nomique)`)},
	{"macroscopy", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+macroscopique|macroscopie|description\s+macroscopique)`)},
	{"microscopy", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+microscopique|microscopie|description\s+microscopique|histologie)`)},
	{"conclusion", regexp.MustCompile(`(?im)^[ \t]*(?:conclusion|diagnostic|synth[eè]se\s+diagnostique)`)},
	{"history", regexp.MustCompile(`(?im)^[ \t]*(?:ant[eé]c[eé]dents?|histoire\s+de\s+la\s+maladie|anamn[eè]se)`)},
	{"treatment", regexp.MustCompile(`(?im)^[ \t]*(?:traitements?|proposition\s+th[eé]rapeutique|th[eé]rapeutique|protocole\s+th[eé]rapeutique)`)},
	{"clinical_exam", regexp.MustCompile(`(?im)^[ \t]*(?:examen\s+clinique|examen\s+neurologique|interrogatoire)`)},
	{"radiology", regexp.MustCompile(`(?im)^[ \t]*(?:imagerie|IRM(?:\s+c[eé]r[eé]brale)?|scanner(?:\s+c[eé]r[eé]bral)?|radiologie|bilan\s+radiologique)`)},
}

// SectionFeatures maps each canonical section to the fields most likely
// found in it. A field may belong to several sections.
var SectionFeatures = map[string][]string{
	"ihc": {
		"ihc_idh1", "ihc_p53", "ihc_atrx", "ihc_fgfr3", "ihc_braf",
		"ihc_hist_h3k27m", "ihc_hist_h3k27me3", "ihc_egfr_hirsch",
		"ihc_gfap", "ihc_olig2", "ihc_ki67", "ihc_mmr",
	},
	"molecular": {
		"mol_idh1", "mol_idh2", "mol_tert", "mol_CDKN2A", "mol_h3f3a",
		"mol_hist1h3b", "mol_braf", "mol_mgmt", "mol_fgfr1", "mol_egfr_mut",
		"mol_prkca", "mol_p53", "mol_pten", "mol_cic", "mol_fubp1", "mol_atrx",
	},
	"chromosomal": {
		"ch1p", "ch19q", "ch10p", "ch10q", "ch7p", "ch7q", "ch9p", "ch9q",
		"ampli_mdm2", "ampli_cdk4", "ampli_egfr", "ampli_met", "ampli_mdm4",
		"fusion_fgfr", "fusion_ntrk", "fusion_autre",
	},
	"macroscopy": {
		"num_labo", "date_chir",
	},
	"microscopy": {
		"diag_histologique", "grade",
		"histo_necrose", "histo_pec", "histo_mitoses",
		"ihc_ki67",
	},
	"conclusion": {
		"diag_histologique", "diag_integre", "classification_oms", "grade",
		"ihc_idh1", "mol_idh1", "mol_mgmt",
		"ch1p", "ch19q",
	},
	"history": {
		"date_1er_symptome", "epilepsie_1er_symptome",
		"ceph_hic_1er_symptome", "deficit_1er_symptome",
		"cognitif_1er_symptome", "autre_trouble_1er_symptome",
		"antecedent_tumoral", "activite_professionnelle",
		"date_de_naissance", "sexe", "nip",
	},
	"treatment": {
		"chimios", "chm_date_debut", "chm_date_fin", "chm_cycles",
		"chir_date", "type_chirurgie",
		"rx_date_debut", "rx_date_fin", "rx_dose",
		"anti_epileptiques", "essai_therapeutique",
		"corticoides", "optune",
	},
	"clinical_exam": {
		"ik_clinique",
		"epilepsie", "ceph_hic", "deficit", "cognitif", "autre_trouble",
		"progress_clinique",
	},
	"radiology": {
		"exam_radio_date_decouverte",
		"contraste_1er_symptome", "oedeme_1er_symptome", "calcif_1er_symptome",
		"tumeur_lateralite", "tumeur_position",
		"progress_radiologique",
	},
}

// preambleFeatures can appear outside any formal section header.
var preambleFeatures = []string{
	"nip", "date_chir", "num_labo",
	"date_de_naissance", "sexe",
	"neuroncologue", "neurochirurgien", "radiotherapeute",
	"localisation_radiotherapie", "localisation_chir",
	"date_deces", "infos_deces",
	"dn_date", "evol_clinique",
	"date_progression",
	"progress_clinique", "progress_radiologique",
}

type sectionMatch struct {
	name      string
	start     int
	bodyStart int
}

// SectionDetector segments clinical documents into named sections.
type SectionDetector struct {
	// MinSectionLength drops section bodies shorter than this many chars.
	MinSectionLength int
}

// NewSectionDetector returns a detector with the default minimum body length.
func NewSectionDetector() *SectionDetector {
	return &SectionDetector{MinSectionLength: 10}
}

func findHeaderMatches(text string, patterns []sectionPattern) []sectionMatch {
	var matches []sectionMatch
	for _, p := range patterns {
		loc := p.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		bodyStart := loc[1]
		for bodyStart < len(text) && (text[bodyStart] == '\r' || text[bodyStart] == '\n') {
			bodyStart++
		}
		matches = append(matches, sectionMatch{name: p.name, start: loc[0], bodyStart: bodyStart})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })
	return matches
}

// Detect segments text into sections in document order. Text before the
// first header becomes "preamble". Bodies shorter than MinSectionLength are
// dropped. When the strict patterns find nothing, the lenient set is tried;
// if that fails too the whole text is returned as a single "full_text"
// section.
func (d *SectionDetector) Detect(text string) []Section {
	if strings.TrimSpace(text) == "" {
		return []Section{{Name: "full_text", Text: text}}
	}

	matches := findHeaderMatches(text, strictSectionPatterns)
	if len(matches) == 0 {
		matches = findHeaderMatches(text, lenientSectionPatterns)
	}
	if len(matches) == 0 {
		return []Section{{Name: "full_text", Text: text}}
	}

	var sections []Section

	if matches[0].start > 0 {
		if preamble := strings.TrimSpace(text[:matches[0].start]); preamble != "" {
			sections = append(sections, Section{Name: "preamble", Text: preamble})
		}
	}

	for i, sm := range matches {
		var body string
		if i+1 < len(matches) {
			body = text[sm.bodyStart:matches[i+1].start]
		} else {
			body = text[sm.bodyStart:]
		}
		body = strings.TrimSpace(body)
		if len(body) < d.MinSectionLength {
			continue
		}
		sections = append(sections, Section{Name: sm.name, Text: body})
	}

	if len(sections) == 0 || (len(sections) == 1 && sections[0].Name == "preamble") {
		return []Section{{Name: "full_text", Text: text}}
	}
	return sections
}

// FeaturesForSections returns the sorted union of fields associated with the
// given section names, always including the preamble identity fields. A
// full_text section makes every schema field relevant.
func FeaturesForSections(sectionNames []string) []string {
	for _, name := range sectionNames {
		if name == "full_text" {
			return schema.AllFieldNames()
		}
	}

	seen := map[string]struct{}{}
	for _, name := range sectionNames {
		for _, f := range SectionFeatures[name] {
			seen[f] = struct{}{}
		}
	}
	for _, f := range preambleFeatures {
		seen[f] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// SectionsForFeature returns the sections where a field is most likely found.
func SectionsForFeature(field string) []string {
	var out []string
	for name, features := range SectionFeatures {
		for _, f := range features {
			if f == field {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}
