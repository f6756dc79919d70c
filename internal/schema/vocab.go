package schema

import "regexp"

// Controlled vocabularies for constrained fields.
var (
	VocabBinary      = []string{"oui", "non"}
	VocabIHC         = []string{"positif", "negatif", "maintenu"}
	VocabMolecular   = []string{"wt", "mute"}
	VocabChromosomal = []string{"gain", "perte", "perte partielle"}
	VocabMethylation = []string{"methyle", "non methyle"}
	// MGMT annotations also carry wt/mute in the source data.
	VocabMGMT      = []string{"methyle", "non methyle", "wt", "mute"}
	VocabGrade     = []string{"1", "2", "3", "4"}
	VocabWHO       = []string{"2007", "2016", "2021"}
	VocabSex       = []string{"M", "F"}
	VocabLaterality = []string{"gauche", "droite", "bilateral", "median"}
	VocabSurgery   = []string{"exerese complete", "exerese partielle", "exerese", "biopsie", "en attente"}
	VocabEvolution = []string{"initial", "terminal"}
)

var (
	reEvolutionP = regexp.MustCompile(`^P\d+$`)
	reVariant    = regexp.MustCompile(`^[A-Za-z0-9_+/ .-]+$`)
)

// IsValidEvolution accepts "initial", "terminal" or "P<k>" progression labels.
func IsValidEvolution(value string) bool {
	if value == "initial" || value == "terminal" {
		return true
	}
	return reEvolutionP.MatchString(value)
}

// IsValidMolecular accepts wt/mute plus raw variant strings such as
// "R132H", "C228T" or "mute + delete".
func IsValidMolecular(value string) bool {
	for _, v := range VocabMolecular {
		if value == v {
			return true
		}
	}
	return len(value) <= 50 && reVariant.MatchString(value)
}
