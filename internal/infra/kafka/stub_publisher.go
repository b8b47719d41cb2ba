package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, voterID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("Stub event published",
		zap.String("event_type", eventType),
		zap.String("voter_id", voterID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishSessionStarted logs session.started events.
func (p *StubPublisher) PublishSessionStarted(_ context.Context, event domain.SessionStartedEvent) error {
	payload := map[string]any{
		"voter_id":   event.VoterID,
		"started_at": event.StartedAt,
		"metadata":   event.Metadata,
	}
	p.logEvent(topicSessionStarted, event.VoterID, event.StartedAt, payload)
	return nil
}

// PublishVoterAuthenticated logs session.authenticated events.
func (p *StubPublisher) PublishVoterAuthenticated(_ context.Context, event domain.VoterAuthenticatedEvent) error {
	payload := map[string]any{
		"voter_id":         event.VoterID,
		"method":           event.Method,
		"authenticated_at": event.AuthenticatedAt,
		"metadata":         event.Metadata,
	}
	p.logEvent(topicVoterAuthenticated, event.VoterID, event.AuthenticatedAt, payload)
	return nil
}

// PublishVoteCommitted logs vote.committed events.
func (p *StubPublisher) PublishVoteCommitted(_ context.Context, event domain.VoteCommittedEvent) error {
	payload := map[string]any{
		"voter_id":        event.VoterID,
		"candidate_id":    event.CandidateID,
		"transaction_ref": event.TransactionRef,
		"committed_at":    event.CommittedAt,
		"metadata":        event.Metadata,
	}
	p.logEvent(topicVoteCommitted, event.VoterID, event.CommittedAt, payload)
	return nil
}

// PublishSessionAbandoned logs session.abandoned events.
func (p *StubPublisher) PublishSessionAbandoned(_ context.Context, event domain.SessionAbandonedEvent) error {
	payload := map[string]any{
		"voter_id":     event.VoterID,
		"phase":        event.Phase,
		"abandoned_at": event.AbandonedAt,
		"metadata":     event.Metadata,
	}
	p.logEvent(topicSessionAbandoned, event.VoterID, event.AbandonedAt, payload)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
