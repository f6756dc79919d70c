// Package pipeline wires classification, section detection, both extraction
// tiers, and validation into a single document extraction flow.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/llm"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/schema"
)

// spanFuzzyThreshold is the minimum word overlap for accepting a cited span.
const spanFuzzyThreshold = 0.8

// Config for the extraction pipeline.
type Config struct {
	// UseLLM enables tier-2 extraction. Without it only rules run.
	UseLLM bool
	// UseNegation enables assertion annotation for binary fields.
	UseNegation bool
}

// Pipeline is the end-to-end clinical feature extraction flow.
type Pipeline struct {
	cfg        Config
	classifier *extract.Classifier
	detector   *extract.SectionDetector
	annotator  *extract.AssertionAnnotator
	extractor  *llm.Extractor
	logger     *slog.Logger
}

// New builds a pipeline. chat may be nil when cfg.UseLLM is false.
func New(cfg Config, chat llm.ChatClient, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{
		cfg:      cfg,
		detector: extract.NewSectionDetector(),
		logger:   logger,
	}
	if cfg.UseNegation {
		p.annotator = extract.NewAssertionAnnotator()
	}
	if cfg.UseLLM && chat != nil {
		p.extractor = llm.NewExtractor(chat, logger)
		if gen, ok := chat.(extract.ClassifierLLM); ok {
			p.classifier = extract.NewClassifier(gen, logger)
		}
	}
	if p.classifier == nil {
		p.classifier = extract.NewClassifier(nil, logger)
	}
	return p
}

func sectionMap(sections []extract.Section) map[string]string {
	m := make(map[string]string, len(sections))
	for _, s := range sections {
		if _, ok := m[s.Name]; !ok {
			m[s.Name] = s.Text
		}
	}
	return m
}

// ExtractDocument runs the full flow on one document. The text must already
// be pseudonymized when privacy matters downstream.
func (p *Pipeline) ExtractDocument(ctx context.Context, text, documentID, patientID string) *extract.Result {
	start := time.Now()

	result := extract.NewResult(documentID)
	result.PatientID = patientID
	result.AddLog("Pipeline started for document '%s'.", documentID)

	classification := p.classifier.Classify(ctx, text)
	result.DocumentType = classification.DocumentType
	result.ClassificationConfidence = classification.Confidence
	result.ClassificationAmbiguous = classification.Ambiguous
	result.AddLog("Document classified as '%s' (confidence=%.2f, ambiguous=%t).",
		classification.DocumentType, classification.Confidence, classification.Ambiguous)
	if classification.Ambiguous {
		result.AddLog("Classification is ambiguous, extracted features may be incomplete.")
	}

	sections := p.detector.Detect(text)
	for _, s := range sections {
		result.SectionsDetected = append(result.SectionsDetected, s.Name)
	}
	result.AddLog("Sections detected: %v", result.SectionsDetected)

	featureSubset, err := schema.ExtractableFields(result.DocumentType)
	if err != nil {
		result.AddLog("Feature routing error: %v. Using full feature set.", err)
		featureSubset = schema.AllFieldNames()
		sort.Strings(featureSubset)
	}
	result.AddLog("Feature subset: %d fields to extract.", len(featureSubset))

	tier1Start := time.Now()
	tier1 := extract.RunRules(text, sections, featureSubset, p.annotator)
	result.Tier1Count = len(tier1)
	result.AddLog("Tier 1 (rule-based): extracted %d fields in %dms.",
		len(tier1), time.Since(tier1Start).Milliseconds())

	remaining := 0
	for _, f := range featureSubset {
		if _, done := tier1[f]; !done {
			remaining++
		}
	}
	result.AddLog("Remaining after Tier 1: %d fields.", remaining)

	tier2 := map[string]*schema.Value{}
	switch {
	case remaining == 0:
		result.AddLog("Tier 2 (LLM) skipped: all features extracted by Tier 1.")
	case p.extractor == nil:
		result.AddLog("Tier 2 (LLM) skipped: LLM extraction disabled.")
	default:
		tier2Start := time.Now()
		tier2 = p.extractor.Run(ctx, text, sectionMap(sections), featureSubset, tier1)
		result.Tier2Count = len(tier2)
		result.AddLog("Tier 2 (LLM): extracted %d fields in %dms.",
			len(tier2), time.Since(tier2Start).Milliseconds())
	}

	// Tier 1 wins on conflicts.
	merged := make(map[string]*schema.Value, len(tier1)+len(tier2))
	for name, v := range tier1 {
		merged[name] = v
	}
	for name, v := range tier2 {
		if _, taken := merged[name]; !taken {
			merged[name] = v
		}
	}
	result.Features = merged
	result.AddLog("Merged: %d total features (%d Tier 1 + %d Tier 2).",
		len(merged), result.Tier1Count, result.Tier2Count)

	extract.Validate(merged, p.logger)
	var vocabFlagged []string
	for name, v := range merged {
		if !v.VocabValid {
			vocabFlagged = append(vocabFlagged, name)
		}
	}
	sort.Strings(vocabFlagged)
	if len(vocabFlagged) > 0 {
		result.AddLog("Vocabulary validation: %d fields flagged: %v.",
			len(vocabFlagged), vocabFlagged)
	} else {
		result.AddLog("Vocabulary validation: all values valid.")
	}

	llm.ValidateSourceSpans(merged, text, spanFuzzyThreshold, p.logger)
	inVocabFlagged := map[string]struct{}{}
	for _, name := range vocabFlagged {
		inVocabFlagged[name] = struct{}{}
	}
	var spanFlagged []string
	for name, v := range merged {
		if _, already := inVocabFlagged[name]; v.Flagged && !already {
			spanFlagged = append(spanFlagged, name)
		}
	}
	sort.Strings(spanFlagged)
	if len(spanFlagged) > 0 {
		result.AddLog("Source span validation: %d additional fields flagged: %v.",
			len(spanFlagged), spanFlagged)
	} else {
		result.AddLog("Source span validation: all spans verified.")
	}

	result.UpdateFlagged()
	result.AddLog("Total flagged for review: %d fields.", len(result.FlaggedForReview))

	for _, dateField := range []string{"date_chir", "dn_date", "chir_date"} {
		if v, ok := merged[dateField]; ok && v.Raw != "" {
			result.DocumentDate = v.Raw
			break
		}
	}

	result.ElapsedMS = float64(time.Since(start).Microseconds()) / 1000
	result.AddLog("Pipeline completed in %.0fms.", result.ElapsedMS)
	return result
}

// Document is one batch input.
type Document struct {
	Text       string
	DocumentID string
	PatientID  string
}

// ExtractBatch processes documents concurrently with at most workers in
// flight. Results come back in input order; a document that panics its way
// out of extraction still yields a Result carrying the error in its log.
func (p *Pipeline) ExtractBatch(ctx context.Context, docs []Document, workers int) []*extract.Result {
	if workers < 1 {
		workers = 1
	}

	results := make([]*extract.Result, len(docs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, doc := range docs {
		g.Go(func() error {
			id := doc.DocumentID
			if id == "" {
				id = fmt.Sprintf("doc_%d", i)
			}
			p.logger.InfoContext(ctx, "pipeline.batch.document",
				"index", i+1, "total", len(docs), "document_id", id)
			results[i] = p.ExtractDocument(ctx, doc.Text, id, doc.PatientID)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
