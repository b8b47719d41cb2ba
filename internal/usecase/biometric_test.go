package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestBiometricChallengeVerifiesOnMatch(t *testing.T) {
	challenge := NewBiometricChallenge(BiometricChallengeConfig{})

	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan: %v", err)
	}

	result, err := challenge.CompleteScan(true)
	if err != nil {
		t.Fatalf("complete scan: %v", err)
	}
	if result.State != domain.BiometricVerified {
		t.Fatalf("expected verified, got %v", result.State)
	}
}

func TestBiometricChallengeCooldownBetweenFailures(t *testing.T) {
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	clock := now
	challenge := NewBiometricChallenge(BiometricChallengeConfig{MaxAttempts: 3, Cooldown: 3 * time.Second}).
		WithClock(func() time.Time { return clock })

	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan: %v", err)
	}
	result, err := challenge.CompleteScan(false)
	if err != nil {
		t.Fatalf("complete scan: %v", err)
	}
	if result.State != domain.BiometricIdle {
		t.Fatalf("expected idle after first failure, got %v", result.State)
	}
	if result.RemainingAttempts != 2 {
		t.Fatalf("expected 2 remaining attempts, got %d", result.RemainingAttempts)
	}
	if result.CooldownUntil == nil || !result.CooldownUntil.Equal(now.Add(3*time.Second)) {
		t.Fatalf("expected cooldown until %v, got %v", now.Add(3*time.Second), result.CooldownUntil)
	}

	// Immediately retrying is rejected.
	if err := challenge.BeginScan(); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	// Once the cooldown elapses the next scan is accepted.
	clock = now.Add(3*time.Second + time.Millisecond)
	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan after cooldown: %v", err)
	}
}

func TestBiometricChallengeForcesFallbackAtAttemptLimit(t *testing.T) {
	clock := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	challenge := NewBiometricChallenge(BiometricChallengeConfig{MaxAttempts: 3, Cooldown: time.Second}).
		WithClock(func() time.Time { return clock })

	for attempt := 1; attempt <= 3; attempt++ {
		clock = clock.Add(2 * time.Second)
		if err := challenge.BeginScan(); err != nil {
			t.Fatalf("attempt %d begin: %v", attempt, err)
		}
		result, err := challenge.CompleteScan(false)
		if err != nil {
			t.Fatalf("attempt %d complete: %v", attempt, err)
		}

		if attempt < 3 {
			if result.State != domain.BiometricIdle {
				t.Fatalf("attempt %d: expected idle, got %v", attempt, result.State)
			}
			continue
		}

		if result.State != domain.BiometricFallbackRequired {
			t.Fatalf("expected fallback at third failure, got %v", result.State)
		}
		if result.RemainingAttempts != 0 {
			t.Fatalf("expected 0 remaining attempts, got %d", result.RemainingAttempts)
		}
	}

	// The challenge is decided; no further scans are possible.
	if err := challenge.BeginScan(); !errors.Is(err, ErrChallengeDecided) {
		t.Fatalf("expected ErrChallengeDecided, got %v", err)
	}
}

func TestBiometricChallengeRejectsConcurrentScan(t *testing.T) {
	challenge := NewBiometricChallenge(BiometricChallengeConfig{})

	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan: %v", err)
	}
	if err := challenge.BeginScan(); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected ErrScanInProgress, got %v", err)
	}
}

func TestBiometricChallengeAbortDoesNotCountAttempt(t *testing.T) {
	challenge := NewBiometricChallenge(BiometricChallengeConfig{MaxAttempts: 3})

	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan: %v", err)
	}
	challenge.AbortScan()

	if challenge.AttemptCount() != 0 {
		t.Fatalf("aborted scan must not count, got %d attempts", challenge.AttemptCount())
	}
	if err := challenge.BeginScan(); err != nil {
		t.Fatalf("begin scan after abort: %v", err)
	}
}

func TestBiometricChallengeCompleteWithoutBegin(t *testing.T) {
	challenge := NewBiometricChallenge(BiometricChallengeConfig{})

	if _, err := challenge.CompleteScan(true); !errors.Is(err, ErrNoScanPending) {
		t.Fatalf("expected ErrNoScanPending, got %v", err)
	}
}
