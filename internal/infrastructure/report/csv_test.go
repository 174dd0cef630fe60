package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"MaterialHarvester/internal/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func TestWriteKeywords(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "keywords.csv")
	sink := NewCSVSink(path, "", "")

	sets := []domain.KeywordSet{
		{
			MaterialID: 12,
			Title:      "Linear Algebra",
			Terms: []domain.ScoredTerm{
				{Term: "matrix", Score: 0.25},
				{Term: "vector", Score: 0.125},
			},
		},
		{
			MaterialID: 13,
			Title:      "Unreachable",
			Failures:   []string{"fetch:status_404"},
		},
	}

	if err := sink.WriteKeywords(context.Background(), sets); err != nil {
		t.Fatalf("write keywords: %v", err)
	}

	rows := readCSV(t, path)
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[1][0] != "12" || rows[1][2] != "matrix|vector" {
		t.Fatalf("unexpected keyword row: %v", rows[1])
	}
	if rows[2][4] != "fetch:status_404" {
		t.Fatalf("unexpected failures cell: %v", rows[2])
	}
}

func TestWriteBrokenLinksAndMismatches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	brokenPath := filepath.Join(dir, "broken.csv")
	mismatchPath := filepath.Join(dir, "mismatched.csv")
	sink := NewCSVSink(filepath.Join(dir, "keywords.csv"), brokenPath, mismatchPath)

	broken := []domain.BrokenLink{{MaterialID: 4, URL: "https://a.example/x.pdf", Attempts: 3, Reason: "unexpected status 500"}}
	if err := sink.WriteBrokenLinks(context.Background(), broken); err != nil {
		t.Fatalf("write broken: %v", err)
	}

	mismatches := []domain.TypeMismatch{{MaterialID: 4, URL: "https://a.example/x.pdf", Declared: "PDF", Sniffed: domain.ContentTypeHTML}}
	if err := sink.WriteTypeMismatches(context.Background(), mismatches); err != nil {
		t.Fatalf("write mismatches: %v", err)
	}

	brokenRows := readCSV(t, brokenPath)
	if len(brokenRows) != 2 || brokenRows[1][2] != "3" {
		t.Fatalf("unexpected broken rows: %v", brokenRows)
	}

	mismatchRows := readCSV(t, mismatchPath)
	if len(mismatchRows) != 2 || mismatchRows[1][3] != "html" {
		t.Fatalf("unexpected mismatch rows: %v", mismatchRows)
	}
}

func TestDisabledReportsWriteNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sink := NewCSVSink(filepath.Join(dir, "keywords.csv"), "", "")

	if err := sink.WriteBrokenLinks(context.Background(), nil); err != nil {
		t.Fatalf("write broken: %v", err)
	}
	if err := sink.WriteTypeMismatches(context.Background(), nil); err != nil {
		t.Fatalf("write mismatches: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("disabled reports created files: %v", entries)
	}
}
