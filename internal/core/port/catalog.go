package port

import (
	"context"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// CandidateCatalog exposes the read-only candidate list for the election.
// Fetched once per voting session; the engine validates selections against
// that snapshot.
type CandidateCatalog interface {
	List(ctx context.Context) ([]domain.Candidate, error)
}
