package port

import (
	"context"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// EventPublisher emits session lifecycle events to the audit stream.
// Publication failures must never fail the voter-facing operation.
type EventPublisher interface {
	PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error
	PublishVoterAuthenticated(ctx context.Context, event domain.VoterAuthenticatedEvent) error
	PublishVoteCommitted(ctx context.Context, event domain.VoteCommittedEvent) error
	PublishSessionAbandoned(ctx context.Context, event domain.SessionAbandonedEvent) error
}
