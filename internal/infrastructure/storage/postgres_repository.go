package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"MaterialHarvester/internal/domain"
	"MaterialHarvester/internal/ports"
)

// PostgresRepository mirrors keyword sets into Postgres for downstream
// querying. A nil db disables persistence, which keeps the repository
// optional in runs that only want the CSV outputs.
type PostgresRepository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.KeywordRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveKeywordSets upserts one row per material with its ranked keywords.
func (r *PostgresRepository) SaveKeywordSets(ctx context.Context, sets []domain.KeywordSet) error {
	if r.db == nil || len(sets) == 0 {
		return nil
	}

	for _, set := range sets {
		terms := make([]string, 0, len(set.Terms))
		scores := make([]float64, 0, len(set.Terms))
		for _, term := range set.Terms {
			terms = append(terms, term.Term)
			scores = append(scores, term.Score)
		}

		query, args, err := r.builder.
			Insert("material_keywords").
			Columns("material_id", "title", "keywords", "scores", "failures").
			Values(
				set.MaterialID,
				set.Title,
				pq.StringArray(terms),
				pq.Float64Array(scores),
				pq.StringArray(set.Failures),
			).
			Suffix(`ON CONFLICT (material_id) DO UPDATE
                    SET title = EXCLUDED.title,
                        keywords = EXCLUDED.keywords,
                        scores = EXCLUDED.scores,
                        failures = EXCLUDED.failures,
                        updated_at = NOW()`).
			ToSql()
		if err != nil {
			return fmt.Errorf("build upsert: %w", err)
		}

		if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert keywords for material %d: %w", set.MaterialID, err)
		}
	}

	return nil
}
