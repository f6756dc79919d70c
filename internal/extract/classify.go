package extract

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/constants"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

const (
	strongWeight       = 3
	moderateWeight     = 1
	ambiguityThreshold = 2

	// Rough truncation for the fallback excerpt, 1 token ~ 4 chars of French.
	classifyExcerptTokens = 500
)

type keywordSet struct {
	Strong   []string
	Moderate []string
}

// DocumentKeywords drives the weighted keyword classifier. Strong keywords
// score 3 points, moderate ones 1.
var DocumentKeywords = map[string]keywordSet{
	"anapath": {
		Strong: []string{
			"anatomopathologique", "anatomie pathologique", "anapath",
			"examen macroscopique", "examen microscopique",
			"immunohistochimie", "IHC",
			"pièce opératoire", "biopsie stéréotaxique", "histologie",
			"compte rendu anatomopathologique", "compte-rendu anatomopathologique",
		},
		Moderate: []string{
			"fixation formolée", "inclusion en paraffine", "coloration HES",
			"Ki67", "GFAP", "Olig2", "necrose", "nécrose",
			"prolifération endothéliocapillaire", "mitoses",
		},
	},
	"molecular_report": {
		Strong: []string{
			"biologie moléculaire", "analyse moléculaire",
			"CGH-array", "CGH array", "séquençage", "panel NGS",
			"altérations chromosomiques", "profil moléculaire",
			"analyse génomique", "profil génomique",
		},
		Moderate: []string{
			"IDH1", "IDH2", "TERT", "MGMT", "1p/19q", "CDKN2A",
			"amplification EGFR", "codélétion", "méthylation", "mutation",
		},
	},
	"consultation": {
		Strong: []string{
			"compte-rendu de consultation", "compte rendu de consultation",
			"consultation du", "vu en consultation", "vue en consultation",
			"vu(e) en consultation", "examen clinique", "interrogatoire",
			"karnofsky", "consultation de suivi",
		},
		Moderate: []string{
			"traitement en cours", "chimio", "témozolomide", "avastin",
			"irradiation", "antécédents", "examen neurologique",
			"plainte", "autonomie",
		},
	},
	"rcp": {
		Strong: []string{
			"réunion de concertation pluridisciplinaire", "RCP", "staff",
			"réunion pluridisciplinaire", "décision thérapeutique collégiale",
			"discussion en RCP", "avis RCP",
		},
		Moderate: []string{
			"proposition thérapeutique", "discussion collégiale",
			"décision collégiale", "protocole thérapeutique",
		},
	},
	"radiology": {
		Strong: []string{
			"IRM cérébrale", "scanner cérébral", "imagerie",
			"compte-rendu radiologique", "compte rendu radiologique",
			"séquences FLAIR", "T1 gadolinium", "prise de contraste",
			"IRM de contrôle", "IRM encéphalique",
		},
		Moderate: []string{
			"lésion", "effet de masse",
			"œdème péri-lésionnel", "oedème péri-lésionnel",
			"spectroscopie", "perfusion", "diffusion", "rehaussement",
		},
	},
}

// ClassificationResult is the outcome of document type detection.
type ClassificationResult struct {
	DocumentType    string              `json:"document_type"`
	Scores          map[string]int      `json:"scores"`
	Confidence      float64             `json:"confidence"`
	Ambiguous       bool                `json:"is_ambiguous"`
	UsedLLMFallback bool                `json:"used_llm_fallback"`
	MatchedKeywords map[string][]string `json:"matched_keywords"`
}

// ClassifierLLM is the completion call the classifier needs for its fallback.
type ClassifierLLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier detects the document type by weighted keyword scoring, with an
// optional LLM fallback for ambiguous documents.
type Classifier struct {
	llm       ClassifierLLM
	keywords  map[string]keywordSet
	threshold int
	logger    *slog.Logger
}

// NewClassifier builds a keyword classifier. llm may be nil to disable the
// fallback.
func NewClassifier(llm ClassifierLLM, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		llm:       llm,
		keywords:  DocumentKeywords,
		threshold: ambiguityThreshold,
		logger:    logger,
	}
}

func scoreText(text string, keywords map[string]keywordSet) (map[string]int, map[string][]string) {
	lower := strings.ToLower(text)
	scores := make(map[string]int, len(keywords))
	matched := make(map[string][]string, len(keywords))

	for docType, set := range keywords {
		total := 0
		var hits []string
		for _, kw := range set.Strong {
			if strings.Contains(lower, strings.ToLower(kw)) {
				total += strongWeight
				hits = append(hits, kw)
			}
		}
		for _, kw := range set.Moderate {
			if strings.Contains(lower, strings.ToLower(kw)) {
				total += moderateWeight
				hits = append(hits, kw)
			}
		}
		scores[docType] = total
		matched[docType] = hits
	}
	return scores, matched
}

type rankedScore struct {
	docType string
	score   int
}

func rankScores(scores map[string]int) []rankedScore {
	ranked := make([]rankedScore, 0, len(scores))
	for dt, s := range scores {
		ranked = append(ranked, rankedScore{dt, s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].docType < ranked[j].docType
	})
	return ranked
}

const classifyPrompt = `Tu es un classifieur de documents médicaux. Classe le document ci-dessous dans EXACTEMENT UNE des 5 catégories suivantes :

- anapath          : compte-rendu anatomopathologique (histologie, IHC, biopsie)
- molecular_report : résultats de biologie moléculaire (CGH-array, NGS, séquençage)
- consultation     : compte-rendu de consultation médicale
- rcp              : réunion de concertation pluridisciplinaire
- radiology        : compte-rendu d'imagerie (IRM, scanner)

Réponds UNIQUEMENT avec le nom de la catégorie, sans explication.

### Document (début) :
%s
`

func truncateExcerpt(text string, maxTokens int) string {
	maxChars := maxTokens * 4
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "…"
}

func parseClassifyResponse(response string) string {
	lower := strings.ToLower(strings.TrimSpace(response))
	for _, dt := range schema.DocumentTypes {
		if strings.Contains(lower, dt) {
			return dt
		}
	}
	// The model sometimes answers with a French label instead of the
	// category name.
	if dt, ok := constants.Canonicalize(lower); ok {
		return string(dt)
	}
	return ""
}

// Classify scores the document against every type and resolves ambiguity via
// the LLM when one is configured. Empty documents default to consultation.
func (c *Classifier) Classify(ctx context.Context, text string) ClassificationResult {
	if strings.TrimSpace(text) == "" {
		scores := make(map[string]int, len(schema.DocumentTypes))
		matched := make(map[string][]string, len(schema.DocumentTypes))
		for _, dt := range schema.DocumentTypes {
			scores[dt] = 0
			matched[dt] = nil
		}
		return ClassificationResult{
			DocumentType:    "consultation",
			Scores:          scores,
			Ambiguous:       true,
			MatchedKeywords: matched,
		}
	}

	scores, matched := scoreText(text, c.keywords)
	ranked := rankScores(scores)
	top := ranked[0]
	second := 0
	if len(ranked) > 1 {
		second = ranked[1].score
	}

	ambiguous := top.score-second <= c.threshold
	if top.score == 0 {
		ambiguous = true
	}
	var confidence float64
	if top.score > 0 {
		confidence = float64(top.score-second) / float64(top.score)
	}

	finalType := top.docType
	usedLLM := false

	if ambiguous && c.llm != nil {
		if llmType := c.llmFallback(ctx, text); llmType != "" {
			usedLLM = true
			finalType = llmType
			if llmType == top.docType {
				confidence = min(confidence+0.3, 1.0)
			} else {
				confidence = 0.5
			}
			c.logger.InfoContext(ctx, "classify.llm_fallback",
				"keyword_type", top.docType, "llm_type", llmType)
		}
	}

	return ClassificationResult{
		DocumentType:    finalType,
		Scores:          scores,
		Confidence:      confidence,
		Ambiguous:       ambiguous,
		UsedLLMFallback: usedLLM,
		MatchedKeywords: matched,
	}
}

func (c *Classifier) llmFallback(ctx context.Context, text string) string {
	prompt := fmt.Sprintf(classifyPrompt, truncateExcerpt(text, classifyExcerptTokens))
	response, err := c.llm.Generate(ctx, prompt)
	if err != nil {
		c.logger.WarnContext(ctx, "classify.llm_fallback.error", "error", err)
		return ""
	}
	docType := parseClassifyResponse(response)
	if docType == "" {
		c.logger.WarnContext(ctx, "classify.llm_fallback.unparseable",
			"response", truncateExcerpt(response, 50))
	}
	return docType
}

// ClassifyDocument classifies with keyword scoring only.
func ClassifyDocument(text string) ClassificationResult {
	return NewClassifier(nil, nil).Classify(context.Background(), text)
}
