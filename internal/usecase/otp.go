package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/security"
	"github.com/voteguard/evote-sessions/internal/repository"
)

var (
	// ErrInvalidCode indicates the submitted code does not match the issued one.
	ErrInvalidCode = errors.New("invalid one-time code")
	// ErrCodeExpired indicates no code is currently issued or the issued code aged out.
	ErrCodeExpired = errors.New("one-time code expired")
	// ErrMalformedCode indicates the submitted code is not exactly six digits.
	ErrMalformedCode = errors.New("code must be exactly six digits")
)

var otpCodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// OTPChallengeConfig bounds issuance and validation of one-time codes.
type OTPChallengeConfig struct {
	CodeLength     int
	TTL            time.Duration
	ResendCooldown time.Duration
}

// IssueReceipt reports the outcome of an issuance to the caller without
// exposing the code itself.
type IssueReceipt struct {
	IssuedAt          time.Time
	ResendAvailableAt time.Time
	ExpiresAt         time.Time
}

// OTPChallenge issues, expires, and validates one-time codes for voters.
// Only the most recently issued code is ever valid: every issuance
// overwrites the stored state, and a successful validation consumes it.
type OTPChallenge struct {
	cfg      OTPChallengeConfig
	store    port.OTPStore
	delivery port.OTPDeliveryService
	now      func() time.Time
}

// NewOTPChallenge constructs an OTPChallenge with the given store and delivery channel.
func NewOTPChallenge(cfg OTPChallengeConfig, store port.OTPStore, delivery port.OTPDeliveryService) *OTPChallenge {
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.ResendCooldown <= 0 {
		cfg.ResendCooldown = 30 * time.Second
	}
	return &OTPChallenge{
		cfg:      cfg,
		store:    store,
		delivery: delivery,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (c *OTPChallenge) WithClock(clock func() time.Time) *OTPChallenge {
	if clock != nil {
		c.now = clock
	}
	return c
}

// Issue generates a fresh code for the voter, invalidating any previously
// issued one, and dispatches it through the delivery channel.
func (c *OTPChallenge) Issue(ctx context.Context, voterID string) (*IssueReceipt, error) {
	if voterID == "" {
		return nil, fmt.Errorf("voter id is required")
	}

	code, err := security.GenerateNumericCode(c.cfg.CodeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := c.now().UTC()
	state := domain.OTPState{
		CodeHash:          security.HashCode(code),
		IssuedAt:          now,
		ResendAvailableAt: now.Add(c.cfg.ResendCooldown),
	}

	if err := c.store.Put(ctx, voterID, state, c.cfg.TTL); err != nil {
		return nil, fmt.Errorf("store otp state: %w", err)
	}

	if err := c.delivery.Send(ctx, voterID, code); err != nil {
		// The stored code stays valid; the caller may resend once the
		// cooldown elapses.
		return nil, domain.ErrDeliveryFailed
	}

	return &IssueReceipt{
		IssuedAt:          state.IssuedAt,
		ResendAvailableAt: state.ResendAvailableAt,
		ExpiresAt:         now.Add(c.cfg.TTL),
	}, nil
}

// Resend behaves as Issue once the resend cooldown has elapsed.
func (c *OTPChallenge) Resend(ctx context.Context, voterID string) (*IssueReceipt, error) {
	state, err := c.store.Get(ctx, voterID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("fetch otp state: %w", err)
	}

	if state != nil && c.now().Before(state.ResendAvailableAt) {
		return nil, ErrCooldownActive
	}

	return c.Issue(ctx, voterID)
}

// ResendAvailableIn reports the remaining resend cooldown for display.
func (c *OTPChallenge) ResendAvailableIn(ctx context.Context, voterID string) (time.Duration, error) {
	state, err := c.store.Get(ctx, voterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("fetch otp state: %w", err)
	}

	remaining := state.ResendAvailableAt.Sub(c.now())
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// Validate checks the submitted code against the issued one. A match
// consumes the code immediately; it can never validate again.
func (c *OTPChallenge) Validate(ctx context.Context, voterID, submitted string) error {
	if !otpCodePattern.MatchString(submitted) {
		return ErrMalformedCode
	}

	state, err := c.store.Get(ctx, voterID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCodeExpired
		}
		return fmt.Errorf("fetch otp state: %w", err)
	}

	if c.now().After(state.IssuedAt.Add(c.cfg.TTL)) {
		return ErrCodeExpired
	}

	if security.HashCode(submitted) != state.CodeHash {
		if _, err := c.store.IncrementAttempts(ctx, voterID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("record failed attempt: %w", err)
		}
		return ErrInvalidCode
	}

	if err := c.store.Delete(ctx, voterID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("consume otp state: %w", err)
	}

	return nil
}
