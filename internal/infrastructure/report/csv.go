package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/ports"
)

// CSVSink writes the run's tabular outputs: the keyword sets plus the two
// operator reports, broken links and declared-vs-sniffed type mismatches.
type CSVSink struct {
	keywordsPath   string
	brokenPath     string
	mismatchedPath string
}

var _ ports.ResultSink = (*CSVSink)(nil)

// NewCSVSink builds a sink writing to the three configured paths. Empty
// report paths disable the corresponding report.
func NewCSVSink(keywordsPath, brokenPath, mismatchedPath string) *CSVSink {
	return &CSVSink{
		keywordsPath:   keywordsPath,
		brokenPath:     brokenPath,
		mismatchedPath: mismatchedPath,
	}
}

// WriteKeywords writes one row per material: id, title, the ranked keywords
// with scores, and any failure kinds collected along the way.
func (s *CSVSink) WriteKeywords(_ context.Context, sets []domain.KeywordSet) error {
	rows := make([][]string, 0, len(sets)+1)
	rows = append(rows, []string{"material_id", "title", "keywords", "scores", "failures"})

	for _, set := range sets {
		terms := make([]string, 0, len(set.Terms))
		scores := make([]string, 0, len(set.Terms))
		for _, term := range set.Terms {
			terms = append(terms, term.Term)
			scores = append(scores, strconv.FormatFloat(term.Score, 'f', 6, 64))
		}

		rows = append(rows, []string{
			strconv.Itoa(set.MaterialID),
			set.Title,
			strings.Join(terms, "|"),
			strings.Join(scores, "|"),
			strings.Join(set.Failures, "|"),
		})
	}

	return writeCSV(s.keywordsPath, rows)
}

// WriteBrokenLinks writes the broken-links report, one row per failed link.
func (s *CSVSink) WriteBrokenLinks(_ context.Context, links []domain.BrokenLink) error {
	if s.brokenPath == "" {
		return nil
	}

	rows := make([][]string, 0, len(links)+1)
	rows = append(rows, []string{"material_id", "url", "attempts", "reason"})
	for _, link := range links {
		rows = append(rows, []string{
			strconv.Itoa(link.MaterialID),
			link.URL,
			strconv.Itoa(link.Attempts),
			link.Reason,
		})
	}

	return writeCSV(s.brokenPath, rows)
}

// WriteTypeMismatches writes the declared-vs-sniffed report.
func (s *CSVSink) WriteTypeMismatches(_ context.Context, mismatches []domain.TypeMismatch) error {
	if s.mismatchedPath == "" {
		return nil
	}

	rows := make([][]string, 0, len(mismatches)+1)
	rows = append(rows, []string{"material_id", "url", "declared_format", "sniffed_type"})
	for _, m := range mismatches {
		rows = append(rows, []string{
			strconv.Itoa(m.MaterialID),
			m.URL,
			m.Declared,
			string(m.Sniffed),
		})
	}

	return writeCSV(s.mismatchedPath, rows)
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	return file.Close()
}
