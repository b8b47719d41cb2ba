package memory

import (
	"context"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
)

// CandidateCatalog serves a fixed ballot from memory. Used in development
// environments where no election database is provisioned.
type CandidateCatalog struct {
	candidates []domain.Candidate
}

// NewCandidateCatalog constructs a catalog with the provided ballot. With no
// candidates the default development ballot is used.
func NewCandidateCatalog(candidates ...domain.Candidate) *CandidateCatalog {
	if len(candidates) == 0 {
		candidates = defaultBallot()
	}
	return &CandidateCatalog{candidates: candidates}
}

// List returns a copy of the ballot in display order.
func (c *CandidateCatalog) List(_ context.Context) ([]domain.Candidate, error) {
	out := make([]domain.Candidate, len(c.candidates))
	copy(out, c.candidates)
	return out, nil
}

func defaultBallot() []domain.Candidate {
	return []domain.Candidate{
		{ID: 1, Name: "John Smith", Party: "Democratic Party", Symbol: "wave"},
		{ID: 2, Name: "Jane Doe", Party: "Republican Party", Symbol: "elephant"},
		{ID: 3, Name: "Alex Johnson", Party: "Green Party", Symbol: "leaf"},
		{ID: 4, Name: "Sarah Williams", Party: "Libertarian Party", Symbol: "torch"},
		{ID: domain.NOTACandidateID, Name: "NOTA", Party: "None of the Above", Symbol: "cross"},
	}
}

var _ port.CandidateCatalog = (*CandidateCatalog)(nil)
