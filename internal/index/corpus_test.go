package index

import (
	"errors"
	"reflect"
	"testing"

	"MaterialHarvester/internal/domain"
)

func newTestCorpus(opts Options) *Corpus {
	return NewCorpus(NewTokenizer(3, nil, false), opts)
}

func TestKeywordsIndependentOfAccumulationOrder(t *testing.T) {
	t.Parallel()

	docs := map[int]string{
		1: "galaxies rotate around dense galactic cores",
		2: "rotate the coordinate frame before plotting galaxies",
		3: "dense matter bends light around massive cores",
	}

	forward := newTestCorpus(Options{TopN: 5})
	for _, id := range []int{1, 2, 3} {
		if err := forward.Accumulate(id, "", docs[id]); err != nil {
			t.Fatalf("accumulate %d: %v", id, err)
		}
	}
	forward.Freeze()

	backward := newTestCorpus(Options{TopN: 5})
	for _, id := range []int{3, 2, 1} {
		if err := backward.Accumulate(id, "", docs[id]); err != nil {
			t.Fatalf("accumulate %d: %v", id, err)
		}
	}
	backward.Freeze()

	if !reflect.DeepEqual(forward.Keywords(), backward.Keywords()) {
		t.Fatalf("keyword sets differ across accumulation orders")
	}
}

func TestAccumulateAfterFreezeFails(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{})
	if err := corpus.Accumulate(1, "first", "alpha beta gamma"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	err := corpus.Accumulate(2, "late", "delta epsilon")
	if !errors.Is(err, domain.ErrCorpusSealed) {
		t.Fatalf("expected ErrCorpusSealed, got %v", err)
	}
	if corpus.HasDocument(2) {
		t.Fatalf("late document must not be counted")
	}
}

func TestEmptyTextIsNoOp(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{})
	if err := corpus.Accumulate(7, "blank", "   \n\t "); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if corpus.DocumentCount() != 0 {
		t.Fatalf("empty text must not create a document")
	}
}

func TestScoreTieBreaksLexicographically(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 10})
	if err := corpus.Accumulate(1, "", "zebra apple"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	sets := corpus.Keywords()
	if len(sets) != 1 || len(sets[0].Terms) != 2 {
		t.Fatalf("unexpected result shape: %+v", sets)
	}
	if sets[0].Terms[0].Term != "apple" || sets[0].Terms[1].Term != "zebra" {
		t.Fatalf("expected lexicographic tie-break, got %+v", sets[0].Terms)
	}
}

func TestTopNTruncates(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 2})
	if err := corpus.Accumulate(1, "", "alpha beta gamma delta epsilon"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	sets := corpus.Keywords()
	if len(sets[0].Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(sets[0].Terms))
	}
}

func TestScoreThresholdFilters(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 10, ScoreThreshold: 100})
	if err := corpus.Accumulate(1, "", "alpha beta gamma"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	sets := corpus.Keywords()
	if len(sets) != 1 {
		t.Fatalf("material must still get a set, got %d", len(sets))
	}
	if len(sets[0].Terms) != 0 {
		t.Fatalf("threshold should filter every term, got %+v", sets[0].Terms)
	}
}

func TestDerivedStopWordsExcludeCommonestTerm(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 10, DerivedStopWords: 1})
	if err := corpus.Accumulate(1, "", "common common common rare"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if err := corpus.Accumulate(2, "", "common common other"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	for _, set := range corpus.Keywords() {
		for _, term := range set.Terms {
			if term.Term == "common" {
				t.Fatalf("derived stop word leaked into material %d", set.MaterialID)
			}
		}
	}
}

func TestKeywordSetsOrderedByMaterialID(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 3})
	for _, id := range []int{42, 7, 19} {
		if err := corpus.Accumulate(id, "", "alpha beta"); err != nil {
			t.Fatalf("accumulate %d: %v", id, err)
		}
	}
	corpus.Freeze()

	sets := corpus.Keywords()
	want := []int{7, 19, 42}
	for i, set := range sets {
		if set.MaterialID != want[i] {
			t.Fatalf("position %d: expected material %d, got %d", i, want[i], set.MaterialID)
		}
	}
}

func TestMultipleAccumulationsMergeIntoOneDocument(t *testing.T) {
	t.Parallel()

	corpus := newTestCorpus(Options{TopN: 10})
	if err := corpus.Accumulate(1, "split", "alpha beta"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	if err := corpus.Accumulate(1, "split", "alpha gamma"); err != nil {
		t.Fatalf("accumulate: %v", err)
	}
	corpus.Freeze()

	if corpus.DocumentCount() != 1 {
		t.Fatalf("expected one merged document, got %d", corpus.DocumentCount())
	}

	sets := corpus.Keywords()
	if len(sets[0].Terms) != 3 {
		t.Fatalf("expected 3 distinct terms, got %+v", sets[0].Terms)
	}
}
