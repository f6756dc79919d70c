package aggregate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/extract"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
)

// PatientDocument is one input document for a patient timeline.
type PatientDocument struct {
	Text       string
	DocumentID string
	// DocumentDate, when set, overrides the date the pipeline extracts.
	// DD/MM/YYYY, usually sourced from file metadata.
	DocumentDate string
}

// BuildPatientTimeline extracts every document for one patient, splits
// multi-event documents into separate rows, and aggregates the rows into a
// chronological timeline.
func BuildPatientTimeline(ctx context.Context, patientID string, docs []PatientDocument, p *pipeline.Pipeline, logger *slog.Logger) []TimelineRow {
	if logger == nil {
		logger = slog.Default()
	}
	if len(docs) == 0 {
		logger.Warn("aggregate.timeline.no_documents", "patient_id", patientID)
		return nil
	}

	logger.InfoContext(ctx, "aggregate.timeline.extract",
		"patient_id", patientID, "documents", len(docs))

	var extractions []*extract.Result
	for _, doc := range docs {
		if strings.TrimSpace(doc.Text) == "" {
			logger.Warn("aggregate.timeline.empty_document",
				"patient_id", patientID, "document_id", doc.DocumentID)
			continue
		}
		result := p.ExtractDocument(ctx, doc.Text, doc.DocumentID, patientID)
		if doc.DocumentDate != "" {
			result.DocumentDate = doc.DocumentDate
		}
		extractions = append(extractions, result)
	}
	if len(extractions) == 0 {
		logger.Warn("aggregate.timeline.no_extractions", "patient_id", patientID)
		return nil
	}

	return BuildTimelineFromExtractions(patientID, extractions, logger)
}

// BuildTimelineFromExtractions builds a timeline from already-extracted
// results, applying row duplication then temporal aggregation.
func BuildTimelineFromExtractions(patientID string, extractions []*extract.Result, logger *slog.Logger) []TimelineRow {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extractions) == 0 {
		return nil
	}

	var expanded []*extract.Result
	for _, ext := range extractions {
		expanded = append(expanded, DetectMultipleEvents(ext)...)
	}
	logger.Info("aggregate.timeline.rows",
		"patient_id", patientID,
		"extractions", len(extractions),
		"rows", len(expanded))

	return AggregateTimeline(expanded)
}
