package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Material is a core entity describing one catalog record and its document links.
type Material struct {
	ID        int
	Title     string
	DetailURL string
	Keywords  string
	Links     []Link
}

// Link points at one downloadable document belonging to a material.
// MediaHint carries the catalog's declared format and is advisory only;
// dispatch always follows the sniffed content type.
type Link struct {
	URL       string
	MediaHint string
}

// ContentType classifies a payload by its magic bytes.
type ContentType string

const (
	ContentTypeUnknown ContentType = "unknown"
	ContentTypePDF     ContentType = "pdf"
	ContentTypeWord    ContentType = "word"
	ContentTypeHTML    ContentType = "html"
	ContentTypeText    ContentType = "text"
)

// CacheKey addresses a cached payload; derived from the source URL alone so
// repeated runs resolve the same URL to the same entry.
type CacheKey string

// KeyForURL derives the content-addressed cache key for a link URL.
func KeyForURL(url string) CacheKey {
	sum := sha256.Sum256([]byte(url))
	return CacheKey(hex.EncodeToString(sum[:]))
}

// CacheEntry describes one immutable cached payload.
type CacheEntry struct {
	Key         CacheKey
	ContentType ContentType
	Path        string
	RetrievedAt time.Time
	Size        int64
}

// ScoredTerm is a keyword with its TF-IDF score.
type ScoredTerm struct {
	Term  string
	Score float64
}

// KeywordSet is the final output unit: ranked keywords for one material.
// Materials that yielded no usable text still get a KeywordSet with empty
// Terms, so operators can tell "nothing extractable" from "never attempted".
type KeywordSet struct {
	MaterialID int
	Title      string
	Terms      []ScoredTerm
	Failures   []string
}

// BrokenLink records a link that failed permanently during a run.
type BrokenLink struct {
	MaterialID int
	URL        string
	Attempts   int
	Reason     string
}

// TypeMismatch records a link whose sniffed content type contradicts the
// format declared in the catalog metadata.
type TypeMismatch struct {
	MaterialID int
	URL        string
	Declared   string
	Sniffed    ContentType
}
