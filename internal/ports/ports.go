package ports

import (
	"context"

	"MaterialHarvester/internal/domain"
)

// MaterialSource enumerates catalog materials with their resolved links.
// Pagination, rate limiting, and retry against the catalog API are the
// implementation's own concern.
type MaterialSource interface {
	ListMaterials(ctx context.Context) ([]domain.Material, error)
}

// ResultSink persists the final keyword sets as a tabular file, plus the
// operator reports collected along the way.
type ResultSink interface {
	WriteKeywords(ctx context.Context, sets []domain.KeywordSet) error
	WriteBrokenLinks(ctx context.Context, links []domain.BrokenLink) error
	WriteTypeMismatches(ctx context.Context, mismatches []domain.TypeMismatch) error
}

// KeywordRepository optionally mirrors keyword sets into durable storage
// for downstream querying.
type KeywordRepository interface {
	SaveKeywordSets(ctx context.Context, sets []domain.KeywordSet) error
}
