package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Ledger  *LedgerRepository
	Catalog *CatalogRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return &Repositories{
		Ledger:  NewLedgerRepository(pool),
		Catalog: NewCatalogRepository(pool),
	}
}
