// Package pdftext turns clinical report PDFs into normalized plain text,
// routing scanned documents to an external OCR service.
package pdftext

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// minCharsPerPage is the embedded-text threshold below which a page counts
// as image-only.
const minCharsPerPage = 30

// Extractor reads PDF text with a scanned-document heuristic. Scanned PDFs
// are sent to the OCR service; digital ones are read directly.
type Extractor struct {
	ocr    *OCRClient
	logger *slog.Logger
}

// NewExtractor builds an extractor. ocr may be nil, in which case scanned
// PDFs fail with an explanatory error.
func NewExtractor(ocr *OCRClient, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{ocr: ocr, logger: logger}
}

func pageText(p pdf.Page) string {
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return text
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !strings.ContainsRune(" \t\n\r\f\v", r) {
			n++
		}
	}
	return n
}

// readPages returns the per-page text of a PDF.
func readPages(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, pageText(r.Page(i)))
	}
	return pages, nil
}

// IsScanned reports whether a majority of pages carry too little embedded
// text to be a digital PDF.
func IsScanned(pages []string) bool {
	if len(pages) == 0 {
		return false
	}
	scanned := 0
	for _, p := range pages {
		if countNonSpace(p) < minCharsPerPage {
			scanned++
		}
	}
	return float64(scanned)/float64(len(pages)) > 0.5
}

// Extract returns the normalized text of the PDF at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	start := time.Now()

	if strings.ToLower(filepath.Ext(path)) != ".pdf" {
		return "", fmt.Errorf("only PDF files are allowed: %s", filepath.Base(path))
	}

	pages, err := readPages(path)
	if err != nil {
		return "", err
	}

	if IsScanned(pages) {
		e.logger.InfoContext(ctx, "pdftext.scanned_detected",
			"file", filepath.Base(path), "pages", len(pages))
		if e.ocr == nil {
			return "", fmt.Errorf("%s looks scanned (image-only) and no OCR service is configured", filepath.Base(path))
		}
		text, err := e.ocr.Recognize(ctx, path)
		if err != nil {
			return "", fmt.Errorf("ocr %s: %w", filepath.Base(path), err)
		}
		return Normalize(text), nil
	}

	var chunks []string
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			chunks = append(chunks, p)
		}
	}
	text := strings.Join(chunks, "\n\n")
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text extracted from %s", filepath.Base(path))
	}

	e.logger.InfoContext(ctx, "pdftext.extracted",
		"file", filepath.Base(path),
		"pages", len(pages),
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Normalize(text), nil
}
