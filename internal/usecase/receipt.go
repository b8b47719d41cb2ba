package usecase

import (
	"errors"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// ErrReceiptUnavailable indicates no complete vote record exists for the
// session; the only recovery is redirecting the voter back to login.
var ErrReceiptUnavailable = errors.New("no complete vote record for session")

// DisplayableReceipt is the validated view of a committed vote, safe to
// render. Fields pass through from the record unmodified.
type DisplayableReceipt struct {
	VoterID        string
	Candidate      domain.Candidate
	TransactionRef string
	ShortRef       string
	CommittedAt    time.Time
}

// ReceiptService validates and exposes a completed vote record for
// display. It never fabricates a record and performs no mutation.
type ReceiptService struct {
	registry *SessionRegistry
}

// NewReceiptService constructs the receipt presenter.
func NewReceiptService(registry *SessionRegistry) *ReceiptService {
	return &ReceiptService{registry: registry}
}

// Present resolves the voter's committed record into a displayable
// receipt. Any missing required field (voter id, resolvable candidate,
// transaction ref) yields ErrReceiptUnavailable.
func (s *ReceiptService) Present(voterID string) (*DisplayableReceipt, error) {
	if voterID == "" {
		return nil, ErrReceiptUnavailable
	}

	session, ok := s.registry.Get(voterID)
	if !ok {
		return nil, ErrReceiptUnavailable
	}

	session.mu.Lock()
	record := session.record
	catalog := session.catalog
	session.mu.Unlock()

	if record == nil || !record.Complete() {
		return nil, ErrReceiptUnavailable
	}

	var candidate *domain.Candidate
	for _, entry := range catalog {
		if entry.ID == record.CandidateID {
			resolved := entry
			candidate = &resolved
			break
		}
	}
	if candidate == nil {
		return nil, ErrReceiptUnavailable
	}

	return &DisplayableReceipt{
		VoterID:        record.VoterID,
		Candidate:      *candidate,
		TransactionRef: record.TransactionRef,
		ShortRef:       shortenRef(record.TransactionRef),
		CommittedAt:    record.CommittedAt,
	}, nil
}

// shortenRef abbreviates long transaction references for display,
// keeping the first and last ten characters.
func shortenRef(ref string) string {
	if len(ref) <= 24 {
		return ref
	}
	return ref[:10] + "..." + ref[len(ref)-10:]
}
