package extract

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// normalizationMap folds common French accent and synonym variants onto the
// controlled vocabulary before validation.
var normalizationMap = map[string]string{
	// IHC / binary status
	"négatif":            "negatif",
	"négative":           "negatif",
	"negative":           "negatif",
	"neg":                "negatif",
	"positive":           "positif",
	"pos":                "positif",
	"+":                  "positif",
	"-":                  "negatif",
	"conservé":           "maintenu",
	"conservée":          "maintenu",
	"conserve":           "maintenu",
	"perte d'expression": "negatif",
	"perte d expression": "negatif",
	// Molecular status
	"muté":                "mute",
	"mutée":               "mute",
	"mutee":               "mute",
	"wild-type":           "wt",
	"wild type":           "wt",
	"sauvage":             "wt",
	"type sauvage":        "wt",
	"non muté":            "wt",
	"non mutée":           "wt",
	"non mute":            "wt",
	"non mutee":           "wt",
	"absence de mutation": "wt",
	"pas de mutation":     "wt",
	// Methylation
	"méthylé":                "methyle",
	"methylé":                "methyle",
	"methylation positive":   "methyle",
	"méthylation positive":   "methyle",
	"non méthylé":            "non methyle",
	"non methylé":            "non methyle",
	"methylation negative":   "non methyle",
	"méthylation négative":   "non methyle",
	"absence de méthylation": "non methyle",
	"absence de methylation": "non methyle",
	// Chromosomal
	"délétion":           "perte",
	"deletion":           "perte",
	"deleted":            "perte",
	"del":                "perte",
	"perte homozygote":   "perte",
	"perte hétérozygote": "perte partielle",
	// Binary
	"yes":      "oui",
	"no":       "non",
	"vrai":     "oui",
	"faux":     "non",
	"true":     "oui",
	"false":    "non",
	"present":  "oui",
	"absent":   "non",
	"présent":  "oui",
	"présente": "oui",
	// Sex
	"homme":    "M",
	"femme":    "F",
	"masculin": "M",
	"féminin":  "F",
	"feminin":  "F",
	"h":        "M",
	"f":        "F",
	"m":        "M",
	// Laterality
	"bilatéral":     "bilateral",
	"bilatérale":    "bilateral",
	"médian":        "median",
	"médiane":       "median",
	"ligne médiane": "median",
	// Surgery type
	"exérèse complète":     "exerese complete",
	"exerese complète":     "exerese complete",
	"exérèse partielle":    "exerese partielle",
	"exérèse":              "exerese",
	"biopsie stéréotaxique": "biopsie",
	"biopsie chirurgicale": "biopsie",
	// WHO classification
	"oms 2007": "2007",
	"oms 2016": "2016",
	"oms 2021": "2021",
	"who 2007": "2007",
	"who 2016": "2016",
	"who 2021": "2021",
}

var nullLikes = map[string]struct{}{
	"null": {}, "none": {}, "n/a": {}, "na": {}, "": {},
}

// NormalizeValue folds a raw extracted value onto its canonical form for the
// given field. The second return is false when the value is empty or
// null-like and should be dropped.
func NormalizeValue(fieldName, raw string) (string, bool) {
	val := strings.TrimSpace(raw)
	if _, isNull := nullLikes[strings.ToLower(val)]; isNull {
		return "", false
	}

	lower := strings.ToLower(val)
	if canonical, ok := normalizationMap[lower]; ok {
		return canonical, true
	}

	f, err := schema.FieldByName(fieldName)
	if err != nil {
		return val, true
	}
	switch f.Kind {
	case schema.KindInteger:
		if n, err := strconv.Atoi(val); err == nil {
			return strconv.Itoa(n), true
		}
	case schema.KindFloat:
		if x, err := strconv.ParseFloat(strings.ReplaceAll(val, ",", "."), 64); err == nil {
			return strconv.FormatFloat(x, 'f', -1, 64), true
		}
	}
	return val, true
}

func valueInVocab(f schema.FieldDef, value string) bool {
	if f.Name == "evol_clinique" {
		return schema.IsValidEvolution(value)
	}
	if f.Group == "molecular" {
		return schema.IsValidMolecular(value)
	}
	if len(f.Vocab) == 0 {
		return true
	}
	for _, allowed := range f.Vocab {
		if allowed == value || strings.EqualFold(allowed, value) {
			return true
		}
	}
	return false
}

// Validate normalizes every extracted value and flags out-of-vocabulary
// values for review. The map is modified in place and returned.
func Validate(extractions map[string]*schema.Value, logger *slog.Logger) map[string]*schema.Value {
	if logger == nil {
		logger = slog.Default()
	}

	for fieldName, v := range extractions {
		if v == nil {
			continue
		}
		f, err := schema.FieldByName(fieldName)
		if err != nil {
			v.Flagged = true
			v.VocabValid = false
			logger.Warn("validate.unknown_field", "field", fieldName)
			continue
		}
		if v.Raw == "" {
			continue
		}

		normalized, keep := NormalizeValue(fieldName, v.Raw)
		if !keep {
			v.Raw = ""
			continue
		}
		v.Raw = normalized

		v.VocabValid = valueInVocab(f, normalized)
		if !v.VocabValid {
			v.Flagged = true
			logger.Info("validate.out_of_vocab",
				"field", fieldName, "value", normalized)
		}
	}
	return extractions
}
