package usecase

import (
	"errors"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

var (
	// ErrScanInProgress indicates a scan is already outstanding for the session.
	ErrScanInProgress = errors.New("biometric scan already in progress")
	// ErrCooldownActive indicates the action was attempted before its timer elapsed.
	ErrCooldownActive = errors.New("cooldown active")
	// ErrChallengeDecided indicates the challenge already reached a terminal state.
	ErrChallengeDecided = errors.New("biometric challenge already decided")
	// ErrNoScanPending indicates CompleteScan was called without a prior BeginScan.
	ErrNoScanPending = errors.New("no biometric scan pending")
)

// ScanResult describes the outcome of one completed scan attempt.
type ScanResult struct {
	State             domain.BiometricState
	RemainingAttempts int
	CooldownUntil     *time.Time
}

// BiometricChallengeConfig bounds the challenge for one session.
type BiometricChallengeConfig struct {
	MaxAttempts int
	Cooldown    time.Duration
}

// BiometricChallenge tracks scan attempts and cooldown for a single voter
// session. Bounded attempts prevent unlimited guessing against a biometric
// match while the forced fallback guarantees forward progress.
//
// State machine: Idle -> Scanning -> {Verified | Idle-with-cooldown | FallbackRequired}.
type BiometricChallenge struct {
	cfg   BiometricChallengeConfig
	state domain.BiometricState
	st    domain.BiometricAttemptState
	now   func() time.Time
}

// NewBiometricChallenge constructs a challenge in the Idle state.
func NewBiometricChallenge(cfg BiometricChallengeConfig) *BiometricChallenge {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 3 * time.Second
	}
	return &BiometricChallenge{
		cfg:   cfg,
		state: domain.BiometricIdle,
		now:   time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (c *BiometricChallenge) WithClock(clock func() time.Time) *BiometricChallenge {
	if clock != nil {
		c.now = clock
	}
	return c
}

// BeginScan transitions Idle -> Scanning. Rejected while another scan is
// outstanding, while cooling down, or once the challenge is decided.
func (c *BiometricChallenge) BeginScan() error {
	switch c.state {
	case domain.BiometricScanning:
		return ErrScanInProgress
	case domain.BiometricVerified, domain.BiometricFallbackRequired:
		return ErrChallengeDecided
	}

	if c.st.CooldownUntil != nil {
		if c.now().Before(*c.st.CooldownUntil) {
			return ErrCooldownActive
		}
		c.st.CooldownUntil = nil
	}

	c.state = domain.BiometricScanning
	return nil
}

// CompleteScan consumes the sensor outcome for the outstanding scan. On
// failure the attempt counter advances; reaching the attempt limit forces
// FallbackRequired, otherwise a cooldown starts and the challenge returns
// to Idle once it elapses.
func (c *BiometricChallenge) CompleteScan(matched bool) (ScanResult, error) {
	if c.state != domain.BiometricScanning {
		return ScanResult{}, ErrNoScanPending
	}

	if matched {
		c.state = domain.BiometricVerified
		return c.result(), nil
	}

	c.st.AttemptCount++
	if c.st.AttemptCount >= c.cfg.MaxAttempts {
		c.state = domain.BiometricFallbackRequired
		return c.result(), nil
	}

	until := c.now().Add(c.cfg.Cooldown)
	c.st.CooldownUntil = &until
	c.state = domain.BiometricIdle
	return c.result(), nil
}

// AbortScan returns an outstanding scan to Idle without recording an
// attempt, used when the sensor read itself failed.
func (c *BiometricChallenge) AbortScan() {
	if c.state == domain.BiometricScanning {
		c.state = domain.BiometricIdle
	}
}

// State returns the current challenge state.
func (c *BiometricChallenge) State() domain.BiometricState {
	return c.state
}

// RemainingAttempts reports how many failed scans remain before fallback.
func (c *BiometricChallenge) RemainingAttempts() int {
	remaining := c.cfg.MaxAttempts - c.st.AttemptCount
	if remaining < 0 {
		return 0
	}
	return remaining
}

// AttemptCount returns the number of failed scans so far.
func (c *BiometricChallenge) AttemptCount() int {
	return c.st.AttemptCount
}

// CooldownRemaining returns the time left before the next scan is allowed.
func (c *BiometricChallenge) CooldownRemaining() time.Duration {
	if c.st.CooldownUntil == nil {
		return 0
	}
	remaining := c.st.CooldownUntil.Sub(c.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *BiometricChallenge) result() ScanResult {
	res := ScanResult{
		State:             c.state,
		RemainingAttempts: c.RemainingAttempts(),
	}
	if c.st.CooldownUntil != nil {
		until := *c.st.CooldownUntil
		res.CooldownUntil = &until
	}
	return res
}
