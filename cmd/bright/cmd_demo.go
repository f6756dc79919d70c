package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/aggregate"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pipeline"
	"github.com/raphaelrubrice/BRIGHT-ClinicalDataBase/internal/pseudo"
)

const demoPID = "demo-001"

// Bundled reports for a fictional patient. The demo runs fully offline:
// rules-only extraction and a fixed entity list instead of the NER service.
var demoReports = []struct {
	id   string
	text string
}{
	{
		id: "anapath_2021-03-12.txt",
		text: "Compte rendu anatomopathologique.\n" +
			"Monsieur Dupont, opéré le 12/03/2021 d'une lésion frontale droite.\n" +
			"Immunohistochimie : IDH1 : positif, ATRX : maintenu, p53 négatif.\n" +
			"Ki67 : 8%.\n",
	},
	{
		id: "consultation_2021-05-02.txt",
		text: "Consultation de neuro-oncologie.\n" +
			"Monsieur Dupont est revu en consultation. Pas de céphalées.\n" +
			"Epilepsie : une crise partielle en avril. IK 90%.\n",
	},
	{
		id: "rcp_2021-05-20.txt",
		text: "Réunion de concertation pluridisciplinaire.\n" +
			"Dossier de Monsieur Dupont. Décision : surveillance par IRM,\n" +
			"pas de traitement complémentaire à ce stade.\n",
	},
}

var demoEntities = []struct {
	text  string
	label string
}{
	{"Dupont", "NOM"},
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the pipeline end to end on bundled sample reports",
	Long: `Run classification, rule-based extraction, pseudonymization and timeline
aggregation over bundled sample reports for one fictional patient.

Everything runs in-process: no LLM, no NER service, no database. Useful as
a smoke test and as a tour of the output formats.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.OutOrStdout(), newLogger())
	},
}

func runDemo(w io.Writer, logger *slog.Logger) error {
	ctx := context.Background()
	p := pipeline.New(pipeline.Config{UseNegation: true}, nil, logger)

	docs := make([]pipeline.Document, 0, len(demoReports))
	for _, r := range demoReports {
		docs = append(docs, pipeline.Document{
			Text:       r.text,
			DocumentID: r.id,
			PatientID:  demoPID,
		})
	}
	results := p.ExtractBatch(ctx, docs, 2)

	pseudonymizer := pseudo.NewPseudonymizer(nil, "demo-salt", logger)
	fmt.Fprintln(w, "Pseudonymized sample:")
	sample := demoReports[0].text
	for _, ent := range demoEntities {
		token := pseudonymizer.StableToken(ent.text, ent.label, demoPID, false)
		sample = strings.ReplaceAll(sample, ent.text, "["+ent.label+"_"+token+"]")
	}
	fmt.Fprintln(w, strings.TrimSpace(sample))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Extraction results:")
	for _, result := range results {
		extracted := 0
		for _, v := range result.Features {
			if v != nil && v.Raw != "" {
				extracted++
			}
		}
		fmt.Fprintf(w, "  %s: type=%s features=%d flagged=%d\n",
			result.DocumentID, result.DocumentType, extracted, len(result.FlaggedForReview))
	}
	fmt.Fprintln(w)

	rows := aggregate.BuildTimelineFromExtractions(demoPID, results, logger)
	cols := aggregate.TimelineColumns(rows)

	fmt.Fprintln(w, "Patient timeline:")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(cols, "\t"))
	for _, row := range rows {
		cells := make([]string, 0, len(cols))
		for _, col := range cols {
			switch col {
			case "_patient_id":
				cells = append(cells, row.PatientID)
			case "_document_id":
				cells = append(cells, row.DocumentID)
			case "_document_type":
				cells = append(cells, row.DocumentType)
			case "_document_date":
				cells = append(cells, row.DocumentDate)
			default:
				cells = append(cells, row.Fields[col])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
