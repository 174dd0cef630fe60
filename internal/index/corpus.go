package index

import (
	"math"
	"sort"
	"sync"

	"MaterialHarvester/internal/domain"
)

// Corpus accumulates per-material term statistics and scores keywords with
// TF-IDF over the whole harvested corpus. It is an explicit two-phase object:
// Accumulate until Freeze, then score. IDF for any term depends on the final
// corpus size, so no score is computed before every document is counted.
type Corpus struct {
	topN             int
	scoreThreshold   float64
	derivedStopWords int
	tokenizer        *Tokenizer

	mu     sync.Mutex
	sealed bool
	docs   map[int]*document
	df     map[string]int
}

type document struct {
	materialID int
	title      string
	terms      map[string]int
	total      int
}

// Options configures corpus scoring.
type Options struct {
	TopN             int
	ScoreThreshold   float64
	DerivedStopWords int
}

// NewCorpus builds an empty corpus in its accumulation phase.
func NewCorpus(tokenizer *Tokenizer, opts Options) *Corpus {
	topN := opts.TopN
	if topN <= 0 {
		topN = 10
	}

	return &Corpus{
		topN:             topN,
		scoreThreshold:   opts.ScoreThreshold,
		derivedStopWords: opts.DerivedStopWords,
		tokenizer:        tokenizer,
		docs:             map[int]*document{},
		df:               map[string]int{},
	}
}

// Accumulate tokenizes a material's merged text and counts it into the
// document-frequency table. All text belonging to one material must be merged
// before the call: the scoring unit is the material, not the individual link.
// Returns domain.ErrCorpusSealed once scoring has begun.
func (c *Corpus) Accumulate(materialID int, title, text string) error {
	tokens := c.tokenizer.Tokenize(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return domain.ErrCorpusSealed
	}
	if len(tokens) == 0 {
		return nil
	}

	doc, ok := c.docs[materialID]
	if !ok {
		doc = &document{materialID: materialID, title: title, terms: map[string]int{}}
		c.docs[materialID] = doc
	}

	for _, token := range tokens {
		if doc.terms[token] == 0 {
			c.df[token]++
		}
		doc.terms[token]++
		doc.total++
	}

	return nil
}

// Freeze ends the accumulation phase. The transition is one-directional.
func (c *Corpus) Freeze() {
	c.mu.Lock()
	c.sealed = true
	c.mu.Unlock()
}

// DocumentCount returns the number of documents counted so far.
func (c *Corpus) DocumentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// HasDocument reports whether a material contributed any tokens.
func (c *Corpus) HasDocument(materialID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.docs[materialID]
	return ok
}

// Keywords computes the ranked keyword set for every accumulated material,
// ordered by material ID. Scores are deterministic and independent of
// accumulation order: term ties break lexicographically.
func (c *Corpus) Keywords() []domain.KeywordSet {
	c.mu.Lock()
	defer c.mu.Unlock()

	derivedStop := c.corpusStopWords()
	totalDocs := float64(len(c.docs))

	sets := make([]domain.KeywordSet, 0, len(c.docs))
	for _, doc := range c.docs {
		scored := make([]domain.ScoredTerm, 0, len(doc.terms))
		for term, count := range doc.terms {
			if _, banned := derivedStop[term]; banned {
				continue
			}

			tf := float64(count) / float64(doc.total)
			idf := math.Log((1+totalDocs)/(1+float64(c.df[term]))) + 1
			score := tf * idf
			if score < c.scoreThreshold {
				continue
			}
			scored = append(scored, domain.ScoredTerm{Term: term, Score: score})
		}

		sort.Slice(scored, func(i, j int) bool {
			if scored[i].Score != scored[j].Score {
				return scored[i].Score > scored[j].Score
			}
			return scored[i].Term < scored[j].Term
		})
		if len(scored) > c.topN {
			scored = scored[:c.topN]
		}

		sets = append(sets, domain.KeywordSet{
			MaterialID: doc.materialID,
			Title:      doc.title,
			Terms:      scored,
		})
	}

	sort.Slice(sets, func(i, j int) bool { return sets[i].MaterialID < sets[j].MaterialID })
	return sets
}

// corpusStopWords derives a stop set from the most frequent corpus terms,
// mirroring the observation that the commonest harvested terms carry no
// keyword value regardless of any configured list.
func (c *Corpus) corpusStopWords() map[string]struct{} {
	stop := map[string]struct{}{}
	if c.derivedStopWords <= 0 {
		return stop
	}

	totals := map[string]int{}
	for _, doc := range c.docs {
		for term, count := range doc.terms {
			totals[term] += count
		}
	}

	type termCount struct {
		term  string
		count int
	}
	ranked := make([]termCount, 0, len(totals))
	for term, count := range totals {
		ranked = append(ranked, termCount{term: term, count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].term < ranked[j].term
	})

	limit := c.derivedStopWords
	if limit > len(ranked) {
		limit = len(ranked)
	}
	for _, entry := range ranked[:limit] {
		stop[entry.term] = struct{}{}
	}
	return stop
}
