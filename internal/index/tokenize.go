package index

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
)

// Tokenizer lowercases text, splits on non-alphanumeric boundaries, and
// filters short tokens and stop words. Stemming is optional and off by
// default since it changes the published keywords.
type Tokenizer struct {
	minLength int
	stopWords map[string]struct{}
	stemming  bool
}

// NewTokenizer builds a tokenizer from the index configuration values.
func NewTokenizer(minLength int, stopWords []string, stemming bool) *Tokenizer {
	if minLength <= 0 {
		minLength = 1
	}

	stop := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		stop[strings.ToLower(word)] = struct{}{}
	}

	return &Tokenizer{minLength: minLength, stopWords: stop, stemming: stemming}
}

// Tokenize returns the filtered token stream of a text, in order.
func (t *Tokenizer) Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if len([]rune(field)) < t.minLength {
			continue
		}
		if _, banned := t.stopWords[field]; banned {
			continue
		}

		if t.stemming {
			if stemmed, err := snowball.Stem(field, "english", false); err == nil && stemmed != "" {
				field = stemmed
			}
		}

		tokens = append(tokens, field)
	}

	return tokens
}
