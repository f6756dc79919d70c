// Package extract implements document classification, section detection,
// assertion annotation, tier-1 rule extraction, and vocabulary validation
// for French neuro-oncology reports.
package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// French month names and abbreviations, 1-based.
var frenchMonths = map[string]int{
	"janvier": 1, "février": 2, "fevrier": 2, "mars": 3,
	"avril": 4, "mai": 5, "juin": 6, "juillet": 7,
	"août": 8, "aout": 8, "septembre": 9, "octobre": 10,
	"novembre": 11, "décembre": 12, "decembre": 12,
	"janv": 1, "jan": 1, "fév": 2, "fev": 2, "févr": 2, "fevr": 2,
	"avr": 4, "juil": 7, "juill": 7,
	"sept": 9, "oct": 10, "nov": 11, "déc": 12, "dec": 12,
}

// altLongest joins quoted alternatives longest-first so the regexp engine
// prefers the most specific match.
func altLongest(items []string) string {
	sorted := append([]string{}, items...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, len(sorted))
	for i, s := range sorted {
		quoted[i] = regexp.QuoteMeta(s)
	}
	return strings.Join(quoted, "|")
}

func monthNamesAlt() string {
	names := make([]string, 0, len(frenchMonths))
	for name := range frenchMonths {
		names = append(names, name)
	}
	return altLongest(names)
}

var (
	reDateDMY    = regexp.MustCompile(`\b(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{4})\b`)
	reDateYMD    = regexp.MustCompile(`\b(\d{4})[/.\-](\d{1,2})[/.\-](\d{1,2})\b`)
	reDateFullFR = regexp.MustCompile(`(?i)\b(\d{1,2})\s+(` + monthNamesAlt() + `)\s+(\d{4})\b`)
	reDateAbbrev = regexp.MustCompile(`(?i)\b(` + monthNamesAlt() + `)[.\-](\d{2,4})\b`)
	reDateYear   = regexp.MustCompile(`(?i)\b(?:en|depuis|année)\s+((?:19|20)\d{2})\b`)
)

// DateMatch is one normalized date found in a text.
type DateMatch struct {
	Normalized string // DD/MM/YYYY
	Raw        string
	Start, End int
}

func normalizeYear(y int) int {
	if y < 100 {
		if y < 50 {
			return y + 2000
		}
		return y + 1900
	}
	return y
}

// ExtractDates finds and normalizes every date in text, sorted by position.
// Month-year dates get day 01; bare years become 01/01/YYYY.
func ExtractDates(text string) []DateMatch {
	var results []DateMatch
	seen := map[[2]int]struct{}{}

	add := func(day, month, year int, raw string, start, end int) {
		key := [2]int{start, end}
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		results = append(results, DateMatch{
			Normalized: fmt.Sprintf("%02d/%02d/%04d", day, month, normalizeYear(year)),
			Raw:        raw,
			Start:      start,
			End:        end,
		})
	}

	for _, m := range reDateDMY.FindAllStringSubmatchIndex(text, -1) {
		add(atoi(text[m[2]:m[3]]), atoi(text[m[4]:m[5]]), atoi(text[m[6]:m[7]]), text[m[0]:m[1]], m[0], m[1])
	}
	for _, m := range reDateYMD.FindAllStringSubmatchIndex(text, -1) {
		add(atoi(text[m[6]:m[7]]), atoi(text[m[4]:m[5]]), atoi(text[m[2]:m[3]]), text[m[0]:m[1]], m[0], m[1])
	}
	for _, m := range reDateFullFR.FindAllStringSubmatchIndex(text, -1) {
		month := frenchMonths[strings.ToLower(strings.TrimSuffix(text[m[4]:m[5]], "."))]
		if month > 0 {
			add(atoi(text[m[2]:m[3]]), month, atoi(text[m[6]:m[7]]), text[m[0]:m[1]], m[0], m[1])
		}
	}
	for _, m := range reDateAbbrev.FindAllStringSubmatchIndex(text, -1) {
		month := frenchMonths[strings.ToLower(strings.TrimSuffix(text[m[2]:m[3]], "."))]
		if month > 0 {
			add(1, month, atoi(text[m[4]:m[5]]), text[m[0]:m[1]], m[0], m[1])
		}
	}
	for _, m := range reDateYear.FindAllStringSubmatchIndex(text, -1) {
		key := [2]int{m[0], m[1]}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		results = append(results, DateMatch{
			Normalized: "01/01/" + text[m[2]:m[3]],
			Raw:        text[m[0]:m[1]],
			Start:      m[0],
			End:        m[1],
		})
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Start < results[j].Start })
	return results
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// ---------------------------------------------------------------------------
// IHC
// ---------------------------------------------------------------------------

var ihcMarkers = []string{
	"idh1", "idh-1", "p53", "atrx", "fgfr3", "braf", "h3k27m",
	"h3k27me3", "egfr", "gfap", "olig2", "ki67", "ki-67",
	"mmr", "mlh1", "msh2", "msh6", "pms2",
}

var ihcCanonical = map[string]string{
	"idh1": "ihc_idh1", "idh-1": "ihc_idh1",
	"p53":      "ihc_p53",
	"atrx":     "ihc_atrx",
	"fgfr3":    "ihc_fgfr3",
	"braf":     "ihc_braf",
	"h3k27m":   "ihc_hist_h3k27m",
	"h3k27me3": "ihc_hist_h3k27me3",
	"egfr":     "ihc_egfr_hirsch",
	"gfap":     "ihc_gfap",
	"olig2":    "ihc_olig2",
	"ki67":     "ihc_ki67", "ki-67": "ihc_ki67",
	"mmr": "ihc_mmr", "mlh1": "ihc_mmr", "msh2": "ihc_mmr", "msh6": "ihc_mmr", "pms2": "ihc_mmr",
}

var ihcValueNorm = map[string]string{
	"positive": "positif", "positif": "positif", "positifs": "positif", "+": "positif",
	"négative": "negatif", "negative": "negatif", "négatif": "negatif", "negatif": "negatif", "-": "negatif",
	"maintenu": "maintenu", "maintenue": "maintenu",
	"conservé": "maintenu", "conserve": "maintenu", "conservée": "maintenu", "conservee": "maintenu",
	"perte d'expression": "negatif", "perte d’expression": "negatif",
}

var reIHC = regexp.MustCompile(
	`(?i)(` + altLongest(ihcMarkers) + `)` +
		`\s*[:=\-\s]\s*` +
		`(positifs?|n[ée]gatif(?:ve)?|positive?|n[ée]gative?` +
		`|maintenue?|perte\s+d['’]expression` +
		`|conserv[ée]e?` +
		`|\+|-` +
		`|\d+\s*(?:[àa]\s*\d+\s*)?%` +
		`|<?\.?\s*\d+\s*%` +
		`|score\s+(?:de\s+)?\d+)`)

var (
	rePct   = regexp.MustCompile(`(\d+)\s*%`)
	reScore = regexp.MustCompile(`(?i)score\s+(?:de\s+)?(\d+)`)
)

// ExtractIHC finds immunohistochemistry results, first occurrence per marker.
func ExtractIHC(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}
	for _, m := range reIHC.FindAllStringSubmatchIndex(text, -1) {
		marker := strings.ToLower(strings.TrimSpace(text[m[2]:m[3]]))
		rawValue := strings.ToLower(strings.TrimSpace(text[m[4]:m[5]]))
		field, ok := ihcCanonical[marker]
		if !ok {
			continue
		}
		normalized, ok := ihcValueNorm[rawValue]
		if !ok {
			if pm := rePct.FindStringSubmatch(rawValue); pm != nil {
				normalized = pm[1]
			} else if sm := reScore.FindStringSubmatch(rawValue); sm != nil {
				normalized = sm[1]
			} else {
				normalized = rawValue
			}
		}
		if _, exists := results[field]; !exists {
			v := schema.RuleValue(normalized, text[m[0]:m[1]], "")
			v.SpanStart, v.SpanEnd = m[0], m[1]
			v.Confidence = 0.9
			results[field] = v
		}
	}
	return results
}

// ---------------------------------------------------------------------------
// Molecular
// ---------------------------------------------------------------------------

var molGenes = []string{
	"idh1", "idh-1", "idh2", "idh-2",
	"tert", "cdkn2a", "h3f3a", "hist1h3b",
	"braf", "mgmt", "fgfr1",
	"egfr", "prkca", "p53", "tp53",
	"pten", "cic", "fubp1", "atrx",
}

var molCanonical = map[string]string{
	"idh1": "mol_idh1", "idh-1": "mol_idh1",
	"idh2": "mol_idh2", "idh-2": "mol_idh2",
	"tert":     "mol_tert",
	"cdkn2a":   "mol_CDKN2A",
	"h3f3a":    "mol_h3f3a",
	"hist1h3b": "mol_hist1h3b",
	"braf":     "mol_braf",
	"mgmt":     "mol_mgmt",
	"fgfr1":    "mol_fgfr1",
	"egfr":     "mol_egfr_mut",
	"prkca":    "mol_prkca",
	"p53":      "mol_p53", "tp53": "mol_p53",
	"pten":  "mol_pten",
	"cic":   "mol_cic",
	"fubp1": "mol_fubp1",
	"atrx":  "mol_atrx",
}

var molStatusNorm = map[string]string{
	"wt": "wt", "wild-type": "wt", "wild type": "wt", "sauvage": "wt", "type sauvage": "wt",
	"non muté": "wt", "non mutée": "wt", "non mute": "wt", "non mutee": "wt",
	"absence de mutation": "wt", "pas de mutation": "wt",
	"muté": "mute", "mutée": "mute", "mute": "mute", "mutee": "mute",
	"mutation": "mute", "présence de mutation": "mute",
	"méthylé": "methyle", "methylé": "methyle", "methyle": "methyle",
	"methylation positive": "methyle", "méthylation positive": "methyle",
	"non méthylé": "non methyle", "non methylé": "non methyle", "non methyle": "non methyle",
	"methylation negative": "non methyle", "méthylation négative": "non methyle",
	"non methylation": "non methyle",
	"absence de méthylation": "non methyle", "absence de methylation": "non methyle",
}

var reVariantValue = regexp.MustCompile(`(?i)^(?:p\.)?[A-Z]\d+[A-Z]`)

var reMol = regexp.MustCompile(
	`(?i)(` + altLongest(molGenes) + `)` +
		`\s*[:=\-\s]\s*` +
		`(wt|wild[- ]?type|sauvage|type\s+sauvage` +
		`|non\s+mut[ée]e?` +
		`|mut[ée]e?|mutation` +
		`|pr[ée]sence\s+de\s+mutation` +
		`|absence\s+de\s+mutation` +
		`|pas\s+de\s+mutation` +
		`|m[ée]thyl[ée]|non\s+m[ée]thyl[ée]` +
		`|m[ée]thylation\s+(?:positive|n[ée]gative)` +
		`|absence\s+de\s+m[ée]thylation` +
		`|(?:p\.)?[A-Z]\d+[A-Z])`)

var reMolNegated = regexp.MustCompile(
	`(?i)(?:pas\s+de\s+mutation|absence\s+de\s+mutation)\s+` +
		`(?:d[ue]\s+gènes?\s+)?` +
		`(` + altLongest(molGenes) + `)`)

var reMolMutationGene = regexp.MustCompile(
	`(?i)mutation\s+(?:d[ue]\s+(?:gènes?\s+)?)?(?:promoteur\s+(?:d[ue]\s+)?)?(` +
		altLongest(molGenes) + `)` +
		`(?:\s*[:(\s]\s*((?:p\.)?[A-Z]\d+[A-Z])\s*[)]?)?`)

var reCodeletion = regexp.MustCompile(
	`(?i)(?:cod[ée]l[ée]tion|co-d[ée]l[ée]tion)\s+(?:des?\s+)?(?:bras?\s+)?1p[/\s]+(?:et\s+)?19q`)

func setFirst(results map[string]*schema.Value, field, value, raw string, start, end int) {
	if _, exists := results[field]; exists {
		return
	}
	v := schema.RuleValue(value, raw, "")
	v.SpanStart, v.SpanEnd = start, end
	v.Confidence = 0.9
	results[field] = v
}

// ExtractMolecular finds molecular biology statuses. Negated and explicit
// mutation phrasings are covered by dedicated patterns; first match wins.
func ExtractMolecular(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	for _, m := range reMol.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(strings.TrimSpace(text[m[2]:m[3]]))
		status := strings.ToLower(strings.TrimSpace(text[m[4]:m[5]]))
		field, ok := molCanonical[gene]
		if !ok {
			continue
		}
		normalized, ok := molStatusNorm[status]
		if !ok {
			if reVariantValue.MatchString(status) {
				setFirst(results, field, "mute", text[m[0]:m[1]], m[0], m[1])
				continue
			}
			normalized = status
		}
		setFirst(results, field, normalized, text[m[0]:m[1]], m[0], m[1])
	}

	for _, m := range reMolNegated.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(strings.TrimSpace(text[m[2]:m[3]]))
		if field, ok := molCanonical[gene]; ok {
			setFirst(results, field, "wt", text[m[0]:m[1]], m[0], m[1])
		}
	}

	for _, m := range reMolMutationGene.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(strings.TrimSpace(text[m[2]:m[3]]))
		if field, ok := molCanonical[gene]; ok {
			setFirst(results, field, "mute", text[m[0]:m[1]], m[0], m[1])
		}
	}

	return results
}

// ---------------------------------------------------------------------------
// Chromosomal
// ---------------------------------------------------------------------------

var chromosomeArms = []string{"1p", "19q", "10p", "10q", "7p", "7q", "9p", "9q"}

var chrStatusNorm = map[string]string{
	"gain": "gain", "perte": "perte", "perte partielle": "perte partielle",
	"délétion": "perte", "deletion": "perte", "deleted": "perte", "del": "perte",
	"normal": "gain", "normale": "gain",
	"perte homozygote": "perte", "perte hétérozygote": "perte partielle",
}

var reChr = regexp.MustCompile(
	`(?i)(` + altLongest(chromosomeArms) + `)` +
		`\s*[:=\-\s]\s*` +
		`(gain|perte(?:\s+partielle)?(?:\s+(?:homo|h[ée]t[ée]ro)zygote)?` +
		`|d[ée]l[ée]tion|deleted?|del` +
		`|normale?)`)

// ExtractChromosomal finds chromosome-arm alterations, including the
// combined 1p/19q codeletion phrasing.
func ExtractChromosomal(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	for _, m := range reChr.FindAllStringSubmatchIndex(text, -1) {
		arm := strings.ToLower(text[m[2]:m[3]])
		status := strings.ToLower(strings.TrimSpace(text[m[4]:m[5]]))
		normalized, ok := chrStatusNorm[status]
		if !ok {
			normalized = status
		}
		setFirst(results, "ch"+arm, normalized, text[m[0]:m[1]], m[0], m[1])
	}

	for _, m := range reCodeletion.FindAllStringIndex(text, -1) {
		setFirst(results, "ch1p", "perte", text[m[0]:m[1]], m[0], m[1])
		setFirst(results, "ch19q", "perte", text[m[0]:m[1]], m[0], m[1])
	}

	return results
}

// ---------------------------------------------------------------------------
// Binary fields
// ---------------------------------------------------------------------------

var binaryKeywords = map[string][]string{
	"epilepsie": {
		"épilepsie", "epilepsie", "crises comitiales", "crises convulsives",
		"crise convulsive", "crise comitiale", "crise épileptique",
		"crises épileptiques", "comitialité",
	},
	"ceph_hic": {
		"céphalées", "cephalees", "céphalée", "HTIC",
		"hypertension intracrânienne", "hypertension intracranienne",
	},
	"deficit": {
		"déficit", "deficit", "déficitaire", "hémiplégie",
		"hémiparésie", "hemiparesie", "parésie", "paralysie",
	},
	"cognitif": {
		"troubles cognitifs", "trouble cognitif", "confusion",
		"troubles mnésiques", "trouble mnésique", "ralentissement",
	},
	"histo_necrose": {
		"nécrose", "necrose", "nécroses", "plages de nécrose",
		"foyers de nécrose", "nécrose palissadique",
	},
	"histo_pec": {
		"prolifération endothéliocapillaire", "proliferation endotheliocapillaire",
		"prolifération endothélio-capillaire", "PEC",
		"hyperplasie endothéliocapillaire",
	},
	"corticoides": {
		"corticoïdes", "corticoides", "corticothérapie", "dexaméthasone",
		"dexamethasone", "solumédrol", "solumedrol", "médrol", "prednisone",
		"cortancyl", "prednisolone",
	},
	"optune": {
		"optune", "ttfields", "tt-fields", "tumor treating fields",
		"champs électriques",
	},
	"anti_epileptiques": {
		"anti-épileptique", "antiépileptique", "anti-epileptique",
		"antiepileptique", "keppra", "lévétiracétam", "levetiracetam",
		"valproate", "dépakine", "depakine", "lacosamide", "vimpat",
		"lamotrigine",
	},
	"essai_therapeutique": {
		"essai thérapeutique", "essai therapeutique", "protocole de recherche",
		"inclusion dans un essai", "étude clinique",
	},
	"contraste_1er_symptome": {
		"prise de contraste", "rehaussement", "enhancement",
	},
	"oedeme_1er_symptome": {
		"œdème", "oedème", "oedeme", "œdème péri-lésionnel",
		"oedème péri-lésionnel", "oedeme peri-lesionnel",
	},
	"calcif_1er_symptome": {
		"calcification", "calcifications", "calcifié",
	},
	"progress_clinique": {
		"progression clinique", "aggravation clinique",
	},
	"progress_radiologique": {
		"progression radiologique", "progression à l'imagerie",
		"augmentation de taille", "croissance tumorale",
	},
	"antecedent_tumoral": {
		"antécédent tumoral", "antecedent tumoral",
		"antécédent de tumeur", "antécédents tumoraux",
	},
}

var reQuickNegation = regexp.MustCompile(`(?i)\b(?:pas\s+(?:de|d['’]\s*)|absence\s+(?:de|d['’]\s*)|sans|aucune?|ni)\s*$`)

// ExtractBinary finds oui/non clinical fields by keyword matching with
// negation detection. A nil annotator falls back to a short left-context
// negation check.
func ExtractBinary(text string, annotator *AssertionAnnotator) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	for field, keywords := range binaryKeywords {
		for _, kw := range keywords {
			re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(kw))
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}

			negated := false
			if annotator != nil {
				ann := annotator.Annotate(text, []Span{{Start: loc[0], End: loc[1], Field: field}})
				if len(ann) > 0 && ann[0].Negated {
					negated = true
				}
			} else {
				contextStart := loc[0] - 50
				if contextStart < 0 {
					contextStart = 0
				}
				if reQuickNegation.MatchString(text[contextStart:loc[0]]) {
					negated = true
				}
			}

			value := "oui"
			if negated {
				value = "non"
			}
			if _, exists := results[field]; !exists {
				v := schema.RuleValue(value, text[loc[0]:loc[1]], "")
				v.SpanStart, v.SpanEnd = loc[0], loc[1]
				v.Confidence = 0.8
				results[field] = v
			}
			break // first keyword match per field
		}
	}

	return results
}

// ---------------------------------------------------------------------------
// Numerical
// ---------------------------------------------------------------------------

var (
	reKi67      = regexp.MustCompile(`(?i)(?:ki[- ]?67|index\s+de\s+prolif[ée]ration)\s*[:=\-\s]\s*(?:(?:environ|~)\s*)?(\d+(?:\s*[àa-]\s*\d+)?)\s*%`)
	reKarnofsky = regexp.MustCompile(`(?i)(?:IK|Karnofsky|KPS|indice\s+de\s+Karnofsky)\s*[:=\-àa\s]\s*(\d{2,3})\s*%?`)
	reMitoses   = regexp.MustCompile(`(?i)(\d+)\s*mitoses?(?:\s*/\s*\d+\s*HPF)?`)
	reGrade     = regexp.MustCompile(`(?i)grade\s*[:=\-\s]?\s*([1-4]|I{1,3}V?|IV)\b`)
	reDoseGy    = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*Gy\b`)
	reCycles    = regexp.MustCompile(`(?i)(\d+)\s*(?:cycles?|cures?)\b`)
)

var romanGrades = map[string]string{"I": "1", "II": "2", "III": "3", "IV": "4"}

// ExtractNumerical finds Ki67, Karnofsky index, mitoses, WHO grade,
// radiotherapy dose and chemo cycle counts.
func ExtractNumerical(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	set := func(field, value, raw string, start, end int, confidence float64) {
		if _, exists := results[field]; exists {
			return
		}
		v := schema.RuleValue(value, raw, "")
		v.SpanStart, v.SpanEnd = start, end
		v.Confidence = confidence
		results[field] = v
	}

	for _, m := range reKi67.FindAllStringSubmatchIndex(text, -1) {
		set("ihc_ki67", strings.TrimSpace(text[m[2]:m[3]]), text[m[0]:m[1]], m[0], m[1], 0.9)
	}
	for _, m := range reKarnofsky.FindAllStringSubmatchIndex(text, -1) {
		set("ik_clinique", text[m[2]:m[3]], text[m[0]:m[1]], m[0], m[1], 0.9)
	}
	for _, m := range reMitoses.FindAllStringSubmatchIndex(text, -1) {
		set("histo_mitoses", text[m[2]:m[3]], text[m[0]:m[1]], m[0], m[1], 0.9)
	}
	for _, m := range reGrade.FindAllStringSubmatchIndex(text, -1) {
		raw := strings.ToUpper(strings.TrimSpace(text[m[2]:m[3]]))
		value, ok := romanGrades[raw]
		if !ok {
			value = raw
		}
		set("grade", value, text[m[0]:m[1]], m[0], m[1], 0.9)
	}
	for _, m := range reDoseGy.FindAllStringSubmatchIndex(text, -1) {
		set("rx_dose", strings.ReplaceAll(text[m[2]:m[3]], ",", "."), text[m[0]:m[1]], m[0], m[1], 0.8)
	}
	for _, m := range reCycles.FindAllStringSubmatchIndex(text, -1) {
		set("chm_cycles", text[m[2]:m[3]], text[m[0]:m[1]], m[0], m[1], 0.8)
	}

	return results
}

// ---------------------------------------------------------------------------
// Amplifications and fusions
// ---------------------------------------------------------------------------

var ampliGenes = []string{"mdm2", "cdk4", "egfr", "met", "mdm4"}

var ampliCanonical = map[string]string{
	"mdm2": "ampli_mdm2", "cdk4": "ampli_cdk4", "egfr": "ampli_egfr",
	"met": "ampli_met", "mdm4": "ampli_mdm4",
}

var reAmpli = regexp.MustCompile(
	`(?i)(?:amplification\s+(?:de\s+|du\s+gène\s+)?(` + altLongest(ampliGenes) + `))` +
		`|(?:(` + altLongest(ampliGenes) + `)\s+amplifiée?)`)

var reAmpliNegated = regexp.MustCompile(
	`(?i)(?:pas\s+d['’]?\s*amplification|absence\s+d['’]?\s*amplification)` +
		`\s+(?:de\s+|du\s+gène\s+)?(` + altLongest(ampliGenes) + `)`)

// ExtractAmplifications finds gene amplification statuses as oui/non.
// The negated pattern runs first so it wins under first-match-wins.
func ExtractAmplifications(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	for _, m := range reAmpliNegated.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(text[m[2]:m[3]])
		if field, ok := ampliCanonical[gene]; ok {
			setFirst(results, field, "non", text[m[0]:m[1]], m[0], m[1])
		}
	}

	for _, m := range reAmpli.FindAllStringSubmatchIndex(text, -1) {
		var gene string
		if m[2] >= 0 {
			gene = strings.ToLower(text[m[2]:m[3]])
		} else if m[4] >= 0 {
			gene = strings.ToLower(text[m[4]:m[5]])
		}
		if field, ok := ampliCanonical[gene]; ok {
			setFirst(results, field, "oui", text[m[0]:m[1]], m[0], m[1])
		}
	}

	return results
}

var fusionGenes = []string{"fgfr", "ntrk", "alk", "ros1", "met", "braf"}

var fusionCanonical = map[string]string{
	"fgfr": "fusion_fgfr",
	"ntrk": "fusion_ntrk",
	// other partners land in fusion_autre
}

var reFusion = regexp.MustCompile(
	`(?i)(?:fusion|r[ée]arrangement|translocation)\s+(?:de\s+|du\s+gène\s+)?(` +
		altLongest(fusionGenes) + `)`)

var reFusionNegated = regexp.MustCompile(
	`(?i)(?:pas\s+de\s+(?:fusion|r[ée]arrangement)|absence\s+de\s+(?:fusion|r[ée]arrangement))` +
		`\s+(?:de\s+|du\s+gène\s+)?(` + altLongest(fusionGenes) + `)`)

// ExtractFusions finds gene fusion statuses as oui/non.
func ExtractFusions(text string) map[string]*schema.Value {
	results := map[string]*schema.Value{}

	fieldFor := func(gene string) string {
		if f, ok := fusionCanonical[gene]; ok {
			return f
		}
		return "fusion_autre"
	}

	for _, m := range reFusionNegated.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(text[m[2]:m[3]])
		setFirst(results, fieldFor(gene), "non", text[m[0]:m[1]], m[0], m[1])
	}
	for _, m := range reFusion.FindAllStringSubmatchIndex(text, -1) {
		gene := strings.ToLower(text[m[2]:m[3]])
		setFirst(results, fieldFor(gene), "oui", text[m[0]:m[1]], m[0], m[1])
	}

	return results
}

// ---------------------------------------------------------------------------
// Master rule extraction
// ---------------------------------------------------------------------------

// sectionExtractors maps each section to the extractors relevant there.
var sectionExtractors = map[string][]string{
	"ihc":           {"ihc", "numerical"},
	"molecular":     {"molecular", "amplification", "fusion"},
	"chromosomal":   {"chromosomal", "amplification"},
	"macroscopy":    {"binary", "numerical"},
	"microscopy":    {"binary", "numerical", "ihc"},
	"conclusion":    {"ihc", "molecular", "chromosomal", "numerical", "amplification", "fusion"},
	"history":       {"date", "binary"},
	"treatment":     {"date", "binary", "numerical"},
	"clinical_exam": {"binary", "numerical"},
	"radiology":     {"binary", "date"},
	"full_text":     {"date", "ihc", "molecular", "chromosomal", "binary", "numerical", "amplification", "fusion"},
}

func isDateField(name string) bool {
	f, err := schema.FieldByName(name)
	return err == nil && f.Kind == schema.KindDate
}

func relevantExtractors(names map[string]struct{}) map[string]struct{} {
	groups := map[string]struct{}{}
	for name := range names {
		switch {
		case strings.HasPrefix(name, "ihc_"):
			groups["ihc"] = struct{}{}
		case strings.HasPrefix(name, "mol_"):
			groups["molecular"] = struct{}{}
		case strings.HasPrefix(name, "ch") && len(name) <= 5:
			groups["chromosomal"] = struct{}{}
		case strings.HasPrefix(name, "ampli_"):
			groups["amplification"] = struct{}{}
		case strings.HasPrefix(name, "fusion_"):
			groups["fusion"] = struct{}{}
		case strings.HasPrefix(name, "histo_"):
			groups["binary"] = struct{}{}
			groups["numerical"] = struct{}{}
		case name == "grade" || name == "ik_clinique" || name == "rx_dose" || name == "chm_cycles":
			groups["numerical"] = struct{}{}
		default:
			if f, err := schema.FieldByName(name); err == nil &&
				f.Kind == schema.KindCategorical && len(f.Vocab) == 2 &&
				f.Vocab[0] == "oui" && f.Vocab[1] == "non" {
				groups["binary"] = struct{}{}
			}
		}
	}
	return groups
}

// RunRules executes every relevant tier-1 extractor over the detected
// sections, keeping only fields in featureSubset. Sections are processed in
// detection order; the first extraction per field wins. When no full_text
// section exists, a catch-all pass runs over the whole text for fields still
// missing.
func RunRules(text string, sections []Section, featureSubset []string, annotator *AssertionAnnotator) map[string]*schema.Value {
	featureSet := map[string]struct{}{}
	for _, f := range featureSubset {
		featureSet[f] = struct{}{}
	}
	all := map[string]*schema.Value{}

	merge := func(extracted map[string]*schema.Value, sectionName string) {
		for field, v := range extracted {
			if _, wanted := featureSet[field]; !wanted {
				continue
			}
			if _, exists := all[field]; exists {
				continue
			}
			v.Section = sectionName
			all[field] = v
		}
	}

	runSet := func(names []string, sectionText, sectionName string) {
		for _, extractor := range names {
			switch extractor {
			case "date":
				dates := ExtractDates(sectionText)
				var missing []string
				for field := range featureSet {
					if _, exists := all[field]; !exists && isDateField(field) {
						missing = append(missing, field)
					}
				}
				sort.Strings(missing)
				for i, field := range missing {
					if i >= len(dates) {
						break
					}
					d := dates[i]
					v := schema.RuleValue(d.Normalized, d.Raw, sectionName)
					v.SpanStart, v.SpanEnd = d.Start, d.End
					v.Confidence = 0.7
					all[field] = v
				}
			case "ihc":
				merge(ExtractIHC(sectionText), sectionName)
			case "molecular":
				merge(ExtractMolecular(sectionText), sectionName)
			case "chromosomal":
				merge(ExtractChromosomal(sectionText), sectionName)
			case "binary":
				merge(ExtractBinary(sectionText, annotator), sectionName)
			case "numerical":
				merge(ExtractNumerical(sectionText), sectionName)
			case "amplification":
				merge(ExtractAmplifications(sectionText), sectionName)
			case "fusion":
				merge(ExtractFusions(sectionText), sectionName)
			}
		}
	}

	hasFullText := false
	for _, section := range sections {
		if section.Name == "full_text" {
			hasFullText = true
		}
		if strings.TrimSpace(section.Text) == "" {
			continue
		}
		extractors, ok := sectionExtractors[section.Name]
		if !ok {
			extractors = sectionExtractors["full_text"]
		}
		runSet(extractors, section.Text, section.Name)
	}

	if !hasFullText {
		remaining := map[string]struct{}{}
		for field := range featureSet {
			if _, exists := all[field]; !exists {
				remaining[field] = struct{}{}
			}
		}
		if len(remaining) > 0 {
			groups := relevantExtractors(remaining)
			var names []string
			for _, g := range []string{"ihc", "molecular", "chromosomal", "binary", "numerical", "amplification", "fusion"} {
				if _, ok := groups[g]; ok {
					names = append(names, g)
				}
			}
			runSet(names, text, "full_text")
		}
	}

	return all
}
