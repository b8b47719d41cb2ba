package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
)

// CatalogRepository implements port.CandidateCatalog backed by PostgreSQL.
type CatalogRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCatalogRepository constructs a catalog backed by any executor that satisfies pgExecutor.
func NewCatalogRepository(exec pgExecutor) *CatalogRepository {
	return &CatalogRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// List returns the ballot in display order.
func (r *CatalogRepository) List(ctx context.Context) ([]domain.Candidate, error) {
	sql, args, err := r.builder.
		Select("id", "name", "party", "symbol").
		From("evote.candidates").
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select candidates sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.Symbol); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

var _ port.CandidateCatalog = (*CatalogRepository)(nil)
