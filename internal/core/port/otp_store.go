package port

import (
	"context"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// OTPStore persists the currently issued code for a voter. Put overwrites
// any previous state atomically, which is what makes a reissue invalidate
// the prior code. Delete enforces single use.
type OTPStore interface {
	Put(ctx context.Context, voterID string, state domain.OTPState, ttl time.Duration) error
	Get(ctx context.Context, voterID string) (*domain.OTPState, error)
	IncrementAttempts(ctx context.Context, voterID string) (int, error)
	Delete(ctx context.Context, voterID string) error
}
