package llm

import (
	"fmt"
	"sort"
	"strings"
)

// PromptConfig is one feature group's prompt pair. UserTemplate carries a
// {section_text} placeholder filled by BuildUserPrompt.
type PromptConfig struct {
	System       string
	UserTemplate string
	Fields       []string
}

// BuildUserPrompt substitutes the document excerpt into the template.
func (p PromptConfig) BuildUserPrompt(sectionText string) string {
	return strings.ReplaceAll(p.UserTemplate, "{section_text}", sectionText)
}

// GetPrompt returns the prompt configuration for a feature group.
func GetPrompt(group string) (PromptConfig, error) {
	p, ok := PromptRegistry[group]
	if !ok {
		names := make([]string, 0, len(PromptRegistry))
		for name := range PromptRegistry {
			names = append(names, name)
		}
		sort.Strings(names)
		return PromptConfig{}, fmt.Errorf("unknown prompt group: %q (available: %v)", group, names)
	}
	return p, nil
}

// PromptRegistry maps feature group names to their extraction prompts. All
// prompts are French, target Qwen3-4B, and demand null over fabrication.
var PromptRegistry = map[string]PromptConfig{
	"ihc": {
		System: "Tu es un extracteur d'informations médicales spécialisé en neuropathologie. " +
			"Tu extrais les résultats d'immunohistochimie (IHC) à partir de comptes rendus " +
			"anatomopathologiques français. Tu ne FABRIQUES JAMAIS de données. " +
			"Si une information n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les résultats d'immunohistochimie (IHC) du texte suivant.

Pour chaque marqueur, retourne :
- La valeur extraite (parmi les valeurs autorisées)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si un marqueur n'est PAS mentionné dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.
Distingue les résultats actuels des résultats historiques (antérieurs).

### Marqueurs à extraire :
- ihc_idh1: "positif" | "negatif" | null
- ihc_p53: "positif" | "negatif" | null
- ihc_atrx: "positif" | "negatif" | "maintenu" | null
- ihc_fgfr3: "positif" | "negatif" | null
- ihc_braf: "positif" | "negatif" | null
- ihc_hist_h3k27m: "positif" | "negatif" | null
- ihc_hist_h3k27me3: "positif" | "negatif" | "maintenu" | null
- ihc_egfr_hirsch: score Hirsch (chaîne, entier 0-3, ou "positif"/"negatif") | null
- ihc_gfap: "positif" | "negatif" | null
- ihc_olig2: "positif" | "negatif" | null
- ihc_ki67: pourcentage (chaîne, ex: "15", "5-10", "<5") | null
- ihc_mmr: "positif" | "negatif" | "maintenu" | null

### Règles d'interprétation :
- "perte d'expression" → "negatif"
- "expression conservée" ou "maintenu" → "maintenu" (pour ATRX, H3K27me3, MMR)
- "expression conservée" → "positif" (pour les autres marqueurs)
- "+", "positive" → "positif"
- "-", "negative", "négative" → "negatif"

### Texte :
{section_text}
`,
		Fields: []string{
			"ihc_idh1", "ihc_p53", "ihc_atrx", "ihc_fgfr3", "ihc_braf",
			"ihc_hist_h3k27m", "ihc_hist_h3k27me3", "ihc_egfr_hirsch",
			"ihc_gfap", "ihc_olig2", "ihc_ki67", "ihc_mmr",
		},
	},
	"molecular": {
		System: "Tu es un extracteur d'informations médicales spécialisé en biologie moléculaire " +
			"neuro-oncologique. Tu extrais les statuts moléculaires (mutations, variants, " +
			"méthylation) à partir de comptes rendus français. Tu ne FABRIQUES JAMAIS de données. " +
			"Si une information n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les résultats de biologie moléculaire du texte suivant.

Pour chaque gène, retourne :
- La valeur extraite (parmi les valeurs autorisées)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si un gène n'est PAS mentionné dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.
Distingue les résultats actuels des résultats historiques.

### Gènes à extraire :
- mol_idh1: "wt" | "mute" | variant (ex: "R132H") | null
- mol_idh2: "wt" | "mute" | variant | null
- mol_tert: "wt" | "mute" | variant (ex: "C228T", "C250T") | null
- mol_CDKN2A: "wt" | "mute" | "mute + delete" | null
- mol_h3f3a: "wt" | "mute" | variant (ex: "K27M", "G34R") | null
- mol_hist1h3b: "wt" | "mute" | variant | null
- mol_braf: "wt" | "mute" | variant (ex: "V600E") | null
- mol_mgmt: "methyle" | "non methyle" | null
- mol_fgfr1: "wt" | "mute" | variant | null
- mol_egfr_mut: "wt" | "mute" | variant | null
- mol_prkca: "wt" | "mute" | variant | null
- mol_p53: "wt" | "mute" | variant | null
- mol_pten: "wt" | "mute" | variant | null
- mol_cic: "wt" | "mute" | variant | null
- mol_fubp1: "wt" | "mute" | variant | null
- mol_atrx: "wt" | "mute" | variant | null

### Règles d'interprétation :
- "wild-type", "sauvage", "type sauvage", "non muté(e)", "absence de mutation" → "wt"
- "muté(e)", "mutation", "présence de mutation" → "mute"
- Si un variant spécifique est mentionné (ex: "IDH1 R132H"), retourne "mute"
- Pour MGMT : "méthylé" → "methyle", "non méthylé" → "non methyle"
- "pas de mutation" → "wt"

### Texte :
{section_text}
`,
		Fields: []string{
			"mol_idh1", "mol_idh2", "mol_tert", "mol_CDKN2A", "mol_h3f3a",
			"mol_hist1h3b", "mol_braf", "mol_mgmt", "mol_fgfr1", "mol_egfr_mut",
			"mol_prkca", "mol_p53", "mol_pten", "mol_cic", "mol_fubp1", "mol_atrx",
		},
	},
	"chromosomal": {
		System: "Tu es un extracteur d'informations médicales spécialisé en cytogénétique " +
			"et génomique tumorale neuro-oncologique. Tu extrais les altérations " +
			"chromosomiques, amplifications et fusions à partir de comptes rendus " +
			"de CGH-array et de biologie moléculaire en français. Tu ne FABRIQUES " +
			"JAMAIS de données. Si une information n'est pas mentionnée, retourne null.",
		UserTemplate: `/no_think
Extrais les altérations chromosomiques, amplifications géniques et fusions du texte suivant.

Pour chaque item, retourne :
- La valeur extraite (parmi les valeurs autorisées)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une altération n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.

### Altérations chromosomiques :
- ch1p: "gain" | "perte" | "perte partielle" | null
- ch19q: "gain" | "perte" | "perte partielle" | null
- ch10p: "gain" | "perte" | "perte partielle" | null
- ch10q: "gain" | "perte" | "perte partielle" | null
- ch7p: "gain" | "perte" | "perte partielle" | null
- ch7q: "gain" | "perte" | "perte partielle" | null
- ch9p: "gain" | "perte" | "perte partielle" | null
- ch9q: "gain" | "perte" | "perte partielle" | null

### Amplifications géniques :
- ampli_mdm2: "oui" | "non" | null
- ampli_cdk4: "oui" | "non" | null
- ampli_egfr: "oui" | "non" | null
- ampli_met: "oui" | "non" | null
- ampli_mdm4: "oui" | "non" | null

### Fusions géniques :
- fusion_fgfr: "oui" | "non" | null
- fusion_ntrk: "oui" | "non" | null
- fusion_autre: "oui" | "non" | null (toute autre fusion identifiée)

### Règles d'interprétation :
- "codélétion 1p/19q" → ch1p="perte", ch19q="perte"
- "délétion", "deleted" → "perte"
- "perte homozygote" → "perte"
- "perte hétérozygote" → "perte partielle"
- "amplification de X" → ampli_X="oui"
- "pas d'amplification de X" → ampli_X="non"
- "fusion X" ou "réarrangement X" → fusion_X="oui"
- "pas de fusion" → fusion_X="non"

### Texte :
{section_text}
`,
		Fields: []string{
			"ch1p", "ch19q", "ch10p", "ch10q", "ch7p", "ch7q", "ch9p", "ch9q",
			"ampli_mdm2", "ampli_cdk4", "ampli_egfr", "ampli_met", "ampli_mdm4",
			"fusion_fgfr", "fusion_ntrk", "fusion_autre",
		},
	},
	"diagnosis": {
		System: "Tu es un extracteur d'informations médicales spécialisé en neuropathologie. " +
			"Tu extrais les informations diagnostiques et histologiques à partir de " +
			"comptes rendus anatomopathologiques et de biologie moléculaire français. " +
			"Tu ne FABRIQUES JAMAIS de données. Si une information n'est pas mentionnée " +
			"dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les informations diagnostiques et histologiques du texte suivant.

Pour chaque champ, retourne :
- La valeur extraite (parmi les valeurs autorisées quand applicable)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une information n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.

### Champs à extraire :
- diag_histologique: texte libre — le diagnostic histologique complet (ex: "glioblastome", "astrocytome diffus")
- diag_integre: texte libre — le diagnostic intégré selon la classification OMS (ex: "glioblastome, IDH wild-type")
- classification_oms: "2007" | "2016" | "2021" | null — la version de la classification OMS utilisée
- grade: 1 | 2 | 3 | 4 | null — le grade OMS (entier)
- histo_necrose: "oui" | "non" | null — présence de nécrose
- histo_pec: "oui" | "non" | null — présence de prolifération endothéliocapillaire (PEC)
- histo_mitoses: entier | null — nombre de mitoses (ex: 5, 12)

### Règles d'interprétation :
- Pour le grade, convertir les chiffres romains : I→1, II→2, III→3, IV→4
- "Grade IV" → 4
- "plages de nécrose", "nécrose palissadique" → histo_necrose="oui"
- "prolifération endothéliocapillaire", "PEC" → histo_pec="oui"
- "X mitoses" → histo_mitoses=X (entier)

### Texte :
{section_text}
`,
		Fields: []string{
			"diag_histologique", "diag_integre", "classification_oms", "grade",
			"histo_necrose", "histo_pec", "histo_mitoses",
		},
	},
	"demographics": {
		System: "Tu es un extracteur d'informations médicales. Tu extrais les informations " +
			"démographiques et d'équipe soignante à partir de comptes rendus de consultation " +
			"en neuro-oncologie français. Tu ne FABRIQUES JAMAIS de données. Si une " +
			"information n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les informations démographiques et d'équipe soignante du texte suivant.

Pour chaque champ, retourne :
- La valeur extraite
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une information n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.

### Champs à extraire :
- nip: chaîne — identifiant patient (NIP, IPP, numéro de dossier)
- date_de_naissance: chaîne — date de naissance au format JJ/MM/AAAA
- sexe: "M" | "F" | null
- activite_professionnelle: texte libre — profession du patient
- antecedent_tumoral: "oui" | "non" | null — antécédent de tumeur
- neuroncologue: texte libre — nom du neuro-oncologue
- neurochirurgien: texte libre — nom du neurochirurgien
- radiotherapeute: texte libre — nom du radiothérapeute
- localisation_radiotherapie: texte libre — lieu de la radiothérapie
- localisation_chir: texte libre — lieu de la chirurgie

### Règles d'interprétation :
- Pour le sexe : "homme", "masculin", "Mr", "M." → "M" ; "femme", "féminin", "Mme", "Mlle" → "F"
- Normaliser les dates au format JJ/MM/AAAA
- "Dr", "Pr", "Docteur", "Professeur" précédé d'un nom → nom du médecin

### Texte :
{section_text}
`,
		Fields: []string{
			"nip", "date_de_naissance", "sexe", "activite_professionnelle",
			"antecedent_tumoral", "neuroncologue", "neurochirurgien",
			"radiotherapeute", "localisation_radiotherapie", "localisation_chir",
		},
	},
	"symptoms": {
		System: "Tu es un extracteur d'informations médicales spécialisé en neuro-oncologie. " +
			"Tu extrais les symptômes initiaux et actuels à partir de comptes rendus de " +
			"consultation français. Tu distingues soigneusement les symptômes au moment " +
			"du diagnostic initial des symptômes actuels. Tu ne FABRIQUES JAMAIS de données. " +
			"Si une information n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les symptômes initiaux (au diagnostic) et actuels du texte suivant.

Pour chaque champ, retourne :
- La valeur extraite (parmi les valeurs autorisées quand applicable)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une information n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.
IMPORTANT : Distingue bien les symptômes au moment du PREMIER diagnostic des symptômes ACTUELS.

### Symptômes au premier diagnostic :
- date_1er_symptome: chaîne — date au format JJ/MM/AAAA
- epilepsie_1er_symptome: "oui" | "non" | null — épilepsie au diagnostic
- ceph_hic_1er_symptome: "oui" | "non" | null — céphalées/HTIC au diagnostic
- deficit_1er_symptome: "oui" | "non" | null — déficit neurologique au diagnostic
- cognitif_1er_symptome: "oui" | "non" | null — troubles cognitifs au diagnostic
- autre_trouble_1er_symptome: "oui" | "non" | null — autres troubles au diagnostic

### Imagerie au diagnostic :
- exam_radio_date_decouverte: chaîne — date de l'imagerie de découverte (JJ/MM/AAAA)
- contraste_1er_symptome: "oui" | "non" | null — prise de contraste à la découverte
- oedeme_1er_symptome: "oui" | "non" | null — œdème à la découverte
- calcif_1er_symptome: "oui" | "non" | null — calcifications à la découverte

### État clinique actuel :
- epilepsie: "oui" | "non" | null — épilepsie actuelle
- ceph_hic: "oui" | "non" | null — céphalées/HTIC actuelle
- deficit: "oui" | "non" | null — déficit neurologique actuel
- cognitif: "oui" | "non" | null — troubles cognitifs actuels
- autre_trouble: texte libre | null — autre trouble actuel (description)
- ik_clinique: entier (0-100) | null — indice de Karnofsky

### Règles d'interprétation :
- "crises comitiales", "crises convulsives", "crise épileptique" → épilepsie = "oui"
- "pas d'épilepsie", "absence de crise" → épilepsie = "non"
- "IK", "Karnofsky", "KPS" suivi d'un nombre → ik_clinique
- Normaliser les dates au format JJ/MM/AAAA

### Texte :
{section_text}
`,
		Fields: []string{
			"date_1er_symptome", "epilepsie_1er_symptome", "ceph_hic_1er_symptome",
			"deficit_1er_symptome", "cognitif_1er_symptome", "autre_trouble_1er_symptome",
			"exam_radio_date_decouverte", "contraste_1er_symptome",
			"oedeme_1er_symptome", "calcif_1er_symptome",
			"epilepsie", "ceph_hic", "deficit", "cognitif", "autre_trouble",
			"ik_clinique",
		},
	},
	"treatment": {
		System: "Tu es un extracteur d'informations médicales spécialisé en neuro-oncologie. " +
			"Tu extrais les informations thérapeutiques (chirurgie, chimiothérapie, " +
			"radiothérapie, traitements adjuvants) à partir de comptes rendus de " +
			"consultation et de RCP français. Tu distingues les traitements en cours " +
			"des traitements historiques. Tu ne FABRIQUES JAMAIS de données. " +
			"Si une information n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les informations thérapeutiques du texte suivant.

Pour chaque champ, retourne :
- La valeur extraite (parmi les valeurs autorisées quand applicable)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une information n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.
IMPORTANT : Distingue les traitements ACTUELS/EN COURS des traitements HISTORIQUES.

### Chirurgie :
- chir_date: chaîne — date de chirurgie au format JJ/MM/AAAA
- type_chirurgie: "exerese complete" | "exerese partielle" | "exerese" | "biopsie" | "en attente" | null

### Chimiothérapie :
- chimios: texte libre — nom(s) des chimiothérapies (ex: "témozolomide", "TMZ + avastin")
- chm_date_debut: chaîne — date début chimio au format JJ/MM/AAAA
- chm_date_fin: chaîne — date fin chimio au format JJ/MM/AAAA
- chm_cycles: entier | null — nombre de cycles de chimiothérapie

### Radiothérapie :
- rx_date_debut: chaîne — date début radiothérapie au format JJ/MM/AAAA
- rx_date_fin: chaîne — date fin radiothérapie au format JJ/MM/AAAA
- rx_dose: chaîne — dose en Gy (ex: "60", "59.4") ou "non"/"oui"/"en attente"

### Traitements adjuvants :
- anti_epileptiques: "oui" | "non" | null — sous anti-épileptiques
- essai_therapeutique: "oui" | "non" | null — inclusion dans un essai thérapeutique
- corticoides: "oui" | "non" | null — sous corticoïdes
- optune: "oui" | "non" | null — utilisation d'Optune (TTFields)

### Règles d'interprétation :
- "TMZ", "Témodal" → chimios = "témozolomide"
- "biopsie stéréotaxique" → type_chirurgie = "biopsie"
- "exérèse totale", "résection complète" → type_chirurgie = "exerese complete"
- "exérèse subtotale", "résection partielle" → type_chirurgie = "exerese partielle"
- Normaliser les dates au format JJ/MM/AAAA

### Texte :
{section_text}
`,
		Fields: []string{
			"chimios", "chm_date_debut", "chm_date_fin", "chm_cycles",
			"chir_date", "type_chirurgie",
			"rx_date_debut", "rx_date_fin", "rx_dose",
			"anti_epileptiques", "essai_therapeutique", "corticoides", "optune",
		},
	},
	"evolution": {
		System: "Tu es un extracteur d'informations médicales spécialisé en neuro-oncologie. " +
			"Tu extrais les informations d'évolution clinique, de progression tumorale, " +
			"de localisation tumorale et de suivi à partir de comptes rendus de consultation " +
			"et de RCP français. Tu ne FABRIQUES JAMAIS de données. Si une information " +
			"n'est pas mentionnée dans le texte, retourne null.",
		UserTemplate: `/no_think
Extrais les informations d'évolution clinique et de suivi du texte suivant.

Pour chaque champ, retourne :
- La valeur extraite (parmi les valeurs autorisées quand applicable)
- Le passage exact du texte qui justifie ta réponse (dans le champ _source correspondant)

Si une information n'est PAS mentionnée dans le texte, retourne null. Ne FABRIQUE JAMAIS de valeur.

### Évolution et suivi :
- dn_date: chaîne — date de dernière nouvelle au format JJ/MM/AAAA
- evol_clinique: "initial" | "P1" | "P2" | "P3" | ... | "terminal" | null — stade d'évolution

### Progression :
- progress_clinique: "oui" | "non" | null — progression clinique
- progress_radiologique: "oui" | "non" | null — progression radiologique
- date_progression: chaîne — date de progression au format JJ/MM/AAAA

### Localisation tumorale :
- tumeur_lateralite: "gauche" | "droite" | "bilateral" | "median" | null
- tumeur_position: texte libre — localisation anatomique (ex: "frontal droit", "temporale gauche")

### Décès :
- date_deces: chaîne — date de décès au format JJ/MM/AAAA
- infos_deces: texte libre — circonstances du décès

### Règles d'interprétation :
- "première récidive", "1ère progression" → evol_clinique = "P1"
- "deuxième récidive" → evol_clinique = "P2"
- "diagnostic initial", "découverte" → evol_clinique = "initial"
- "phase terminale", "soins palliatifs" → evol_clinique = "terminal"
- "hémisphère gauche", "côté gauche" → tumeur_lateralite = "gauche"
- "hémisphère droit", "côté droit" → tumeur_lateralite = "droite"
- "bilatéral", "deux hémisphères" → tumeur_lateralite = "bilateral"
- "médian", "ligne médiane", "vermis" → tumeur_lateralite = "median"
- Normaliser les dates au format JJ/MM/AAAA

### Texte :
{section_text}
`,
		Fields: []string{
			"dn_date", "evol_clinique",
			"progress_clinique", "progress_radiologique", "date_progression",
			"tumeur_lateralite", "tumeur_position",
			"date_deces", "infos_deces",
		},
	},
}
