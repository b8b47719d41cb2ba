package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/logger"
)

var (
	// ErrNoSelection indicates confirmation was requested before a candidate was selected.
	ErrNoSelection = errors.New("no candidate selected")
	// ErrUnauthorized indicates commit was attempted without a valid authenticated session.
	ErrUnauthorized = errors.New("commit requires an authenticated session")
	// ErrConfirmationRequired indicates commit was attempted before the voter confirmed.
	ErrConfirmationRequired = errors.New("commit requires a pending confirmation")
)

// VotingService enforces the single-vote invariant and runs the
// candidate-selection / confirm / commit protocol. The confirm/commit
// split exists because the commit is irreversible; the duplicate check
// happens at commit time inside the ledger so that two concurrent
// sessions for one voter cannot both produce a record.
type VotingService struct {
	registry *SessionRegistry
	catalog  port.CandidateCatalog
	ledger   port.LedgerService
	events   port.EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewVotingService constructs the vote-casting engine.
func NewVotingService(
	registry *SessionRegistry,
	catalog port.CandidateCatalog,
	ledger port.LedgerService,
	events port.EventPublisher,
	log *zap.Logger,
) *VotingService {
	if log == nil {
		log = zap.NewNop()
	}
	return &VotingService{
		registry: registry,
		catalog:  catalog,
		ledger:   ledger,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *VotingService) WithClock(clock func() time.Time) *VotingService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Candidates returns the catalog snapshot for the voter's session,
// fetching it once and reusing it for selection validation thereafter.
func (s *VotingService) Candidates(ctx context.Context, voterID string) ([]domain.Candidate, error) {
	session, err := s.authenticated(voterID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.catalog == nil {
		list, err := s.catalog.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch candidate catalog: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("candidate catalog is empty")
		}
		session.catalog = list
	}

	snapshot := make([]domain.Candidate, len(session.catalog))
	copy(snapshot, session.catalog)
	return snapshot, nil
}

// SelectCandidate records the pending selection. The selection stays
// mutable until commit; re-selecting simply replaces it.
func (s *VotingService) SelectCandidate(ctx context.Context, voterID string, candidateID int) (domain.Candidate, error) {
	if _, err := s.Candidates(ctx, voterID); err != nil {
		return domain.Candidate{}, err
	}

	session, err := s.authenticated(voterID)
	if err != nil {
		return domain.Candidate{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	for _, candidate := range session.catalog {
		if candidate.ID == candidateID {
			selected := candidate
			session.selection = &selected
			return selected, nil
		}
	}

	return domain.Candidate{}, domain.ErrUnknownCandidate
}

// RequestConfirmation transitions to the confirmation-pending state and
// exposes the selected candidate for display. No persistent state changes.
func (s *VotingService) RequestConfirmation(voterID string) (domain.Candidate, error) {
	session, err := s.authenticated(voterID)
	if err != nil {
		return domain.Candidate{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.selection == nil {
		return domain.Candidate{}, ErrNoSelection
	}

	session.confirming = true
	return *session.selection, nil
}

// CancelConfirmation returns to candidate selection. The prior selection
// is preserved and can be re-confirmed without re-selecting.
func (s *VotingService) CancelConfirmation(voterID string) error {
	session, err := s.authenticated(voterID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	session.confirming = false
	return nil
}

// Commit is the two-phase irreversible action. Phase 1 checks the
// capability and the single-vote invariant; phase 2 submits to the ledger,
// which performs the duplicate check and the write as one atomic unit.
// On a transient ledger failure the confirmation-pending state is kept so
// the caller can retry without re-selecting.
func (s *VotingService) Commit(ctx context.Context, capability domain.AuthenticatedSession) (*domain.VoteRecord, error) {
	session, ok := s.registry.Get(capability.VoterID)
	if !ok {
		return nil, ErrUnauthorized
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.auth == nil || session.auth.VoterID != capability.VoterID {
		return nil, ErrUnauthorized
	}
	if session.record != nil {
		return nil, domain.ErrAlreadyVoted
	}
	if session.selection == nil {
		return nil, ErrNoSelection
	}
	if !session.confirming {
		return nil, ErrConfirmationRequired
	}

	txRef, err := s.ledger.SubmitVote(ctx, session.VoterID(), session.selection.ID)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			// Terminal: another session for this voter won the race.
			session.confirming = false
			return nil, domain.ErrAlreadyVoted
		}
		// Confirmation-pending state survives so commit can be retried.
		return nil, err
	}

	record := &domain.VoteRecord{
		VoterID:        session.VoterID(),
		CandidateID:    session.selection.ID,
		TransactionRef: txRef,
		CommittedAt:    s.now().UTC(),
	}
	session.record = record
	session.confirming = false

	if s.events != nil {
		event := domain.VoteCommittedEvent{
			VoterID:        logger.MaskVoterID(record.VoterID),
			CandidateID:    record.CandidateID,
			TransactionRef: record.TransactionRef,
			CommittedAt:    record.CommittedAt,
		}
		if err := s.events.PublishVoteCommitted(ctx, event); err != nil {
			s.log.Warn("publish vote committed", zap.Error(err))
		}
	}

	copied := *record
	return &copied, nil
}

// PendingSelection exposes the current selection and confirmation flag.
func (s *VotingService) PendingSelection(voterID string) (*domain.Candidate, bool, error) {
	session, err := s.authenticated(voterID)
	if err != nil {
		return nil, false, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.selection == nil {
		return nil, session.confirming, nil
	}
	selected := *session.selection
	return &selected, session.confirming, nil
}

func (s *VotingService) authenticated(voterID string) (*VoterSession, error) {
	if voterID == "" {
		return nil, ErrUnauthorized
	}
	session, ok := s.registry.Get(voterID)
	if !ok {
		return nil, ErrUnauthorized
	}
	if session.Authenticated() == nil {
		return nil, ErrUnauthorized
	}
	return session, nil
}
