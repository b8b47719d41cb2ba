package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/infra/sensor"
	"github.com/voteguard/evote-sessions/internal/repository/memory"
)

type recordingPublisher struct {
	mu            sync.Mutex
	started       []domain.SessionStartedEvent
	authenticated []domain.VoterAuthenticatedEvent
	committed     []domain.VoteCommittedEvent
	abandoned     []domain.SessionAbandonedEvent
}

func (p *recordingPublisher) PublishSessionStarted(_ context.Context, e domain.SessionStartedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, e)
	return nil
}

func (p *recordingPublisher) PublishVoterAuthenticated(_ context.Context, e domain.VoterAuthenticatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.authenticated = append(p.authenticated, e)
	return nil
}

func (p *recordingPublisher) PublishVoteCommitted(_ context.Context, e domain.VoteCommittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.committed = append(p.committed, e)
	return nil
}

func (p *recordingPublisher) PublishSessionAbandoned(_ context.Context, e domain.SessionAbandonedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = append(p.abandoned, e)
	return nil
}

type stubTokens struct{}

func (stubTokens) Issue(session domain.AuthenticatedSession) (string, error) {
	return "token-" + session.VoterID, nil
}

type failingSensor struct{}

func (failingSensor) Scan(context.Context, string) (bool, error) {
	return false, errors.New("device detached")
}

type authFixture struct {
	auth     *AuthService
	registry *SessionRegistry
	delivery *captureDelivery
	events   *recordingPublisher
	clock    *time.Time
}

func newAuthFixture(t *testing.T, scanner interface {
	Scan(ctx context.Context, voterID string) (bool, error)
}) *authFixture {
	t.Helper()

	now := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	f := &authFixture{
		registry: NewSessionRegistry(),
		delivery: &captureDelivery{},
		events:   &recordingPublisher{},
		clock:    &now,
	}

	store := memory.NewOTPStore().WithClock(func() time.Time { return *f.clock })
	otp := NewOTPChallenge(OTPChallengeConfig{
		CodeLength:     6,
		TTL:            5 * time.Minute,
		ResendCooldown: 30 * time.Second,
	}, store, f.delivery).WithClock(func() time.Time { return *f.clock })

	f.auth = NewAuthService(AuthConfig{
		Biometric: BiometricChallengeConfig{MaxAttempts: 3, Cooldown: 3 * time.Second},
	}, f.registry, scanner, otp, stubTokens{}, f.events, nil).
		WithClock(func() time.Time { return *f.clock })

	return f
}

func (f *authFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func TestStartSessionValidatesIdentifier(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(true))

	if _, err := f.auth.StartSession(context.Background(), "not-a-voter"); !errors.Is(err, domain.ErrMalformedVoterID) {
		t.Fatalf("expected ErrMalformedVoterID, got %v", err)
	}
	if _, err := f.auth.StartSession(context.Background(), "  "); !errors.Is(err, domain.ErrEmptyVoterID) {
		t.Fatalf("expected ErrEmptyVoterID, got %v", err)
	}

	session, err := f.auth.StartSession(context.Background(), "ABC1234567")
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.State() != StateIdentitySubmitted {
		t.Fatalf("expected identity_submitted, got %v", session.State())
	}
	if len(f.events.started) != 1 {
		t.Fatalf("expected 1 session started event, got %d", len(f.events.started))
	}
}

func TestStartSessionReplacesPriorSession(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(false, false, true))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	// Two failures accumulate on the challenge.
	for i := 0; i < 2; i++ {
		f.advance(5 * time.Second)
		if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); err != nil {
			t.Fatalf("scan %d: %v", i+1, err)
		}
	}

	// Restarting from identity submission resets all counters.
	session, err := f.auth.StartSession(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("restart session: %v", err)
	}
	if session.State() != StateIdentitySubmitted {
		t.Fatalf("expected identity_submitted after restart, got %v", session.State())
	}

	live, _ := f.registry.Get("ABC1234567")
	if live.biometric.AttemptCount() != 0 {
		t.Fatalf("expected reset attempt counter, got %d", live.biometric.AttemptCount())
	}
}

func TestBiometricScanSuccessAuthenticates(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(true))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	outcome, err := f.auth.PerformBiometricScan(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !outcome.Verified {
		t.Fatal("expected verified outcome")
	}
	if outcome.Session == nil || outcome.Session.VerifiedVia != domain.VerifiedViaBiometric {
		t.Fatalf("expected biometric capability, got %+v", outcome.Session)
	}
	if outcome.Token != "token-ABC1234567" {
		t.Fatalf("expected issued token, got %q", outcome.Token)
	}

	session, _ := f.registry.Get("ABC1234567")
	if session.State() != StateAuthenticated {
		t.Fatalf("expected authenticated state, got %v", session.State())
	}
	if len(f.events.authenticated) != 1 || f.events.authenticated[0].Method != domain.VerifiedViaBiometric {
		t.Fatalf("expected biometric authenticated event, got %+v", f.events.authenticated)
	}

	// A second scan on a decided session is rejected.
	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); !errors.Is(err, ErrAlreadyAuthenticated) {
		t.Fatalf("expected ErrAlreadyAuthenticated, got %v", err)
	}
}

func TestBiometricScanExhaustionForcesFallback(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(false))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	var outcome *ScanOutcome
	for i := 0; i < 3; i++ {
		f.advance(5 * time.Second)
		var err error
		outcome, err = f.auth.PerformBiometricScan(ctx, "ABC1234567")
		if err != nil {
			t.Fatalf("scan %d: %v", i+1, err)
		}
	}

	if !outcome.FallbackRequired {
		t.Fatal("expected fallback required after third failure")
	}
	if outcome.RemainingAttempts != 0 {
		t.Fatalf("expected 0 remaining attempts, got %d", outcome.RemainingAttempts)
	}
}

func TestBiometricScanRespectsCooldown(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(false))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}
}

func TestBiometricScanSensorFailureDoesNotCountAttempt(t *testing.T) {
	f := newAuthFixture(t, failingSensor{})
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); !errors.Is(err, domain.ErrSensorUnavailable) {
		t.Fatalf("expected ErrSensorUnavailable, got %v", err)
	}

	session, _ := f.registry.Get("ABC1234567")
	if session.biometric.AttemptCount() != 0 {
		t.Fatalf("sensor failure must not consume an attempt, got %d", session.biometric.AttemptCount())
	}
}

func TestOTPFallbackFlow(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(false))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	receipt, err := f.auth.RequestOTPFallback(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("request otp: %v", err)
	}
	if receipt == nil || len(f.delivery.codes) != 1 {
		t.Fatalf("expected one dispatched code, got %d", len(f.delivery.codes))
	}

	// Biometric scans are no longer available once OTP is in play.
	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	// A wrong code leaves the session retryable.
	wrong := "000000"
	if wrong == f.delivery.last() {
		wrong = "000001"
	}
	if _, err := f.auth.VerifyOTP(ctx, "ABC1234567", wrong); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected ErrInvalidCode, got %v", err)
	}

	result, err := f.auth.VerifyOTP(ctx, "ABC1234567", f.delivery.last())
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if result.Session.VerifiedVia != domain.VerifiedViaOTP {
		t.Fatalf("expected otp capability, got %v", result.Session.VerifiedVia)
	}
	if result.Token == "" {
		t.Fatal("expected issued token")
	}
}

func TestResendOTPHonoursCooldown(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(false))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}
	if _, err := f.auth.RequestOTPFallback(ctx, "ABC1234567"); err != nil {
		t.Fatalf("request otp: %v", err)
	}

	if _, err := f.auth.ResendOTP(ctx, "ABC1234567"); !errors.Is(err, ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	f.advance(31 * time.Second)
	if _, err := f.auth.ResendOTP(ctx, "ABC1234567"); err != nil {
		t.Fatalf("resend after cooldown: %v", err)
	}
	if len(f.delivery.codes) != 2 {
		t.Fatalf("expected two dispatched codes, got %d", len(f.delivery.codes))
	}
}

func TestAbandonSessionDiscardsState(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(true))
	ctx := context.Background()

	if _, err := f.auth.StartSession(ctx, "ABC1234567"); err != nil {
		t.Fatalf("start session: %v", err)
	}

	f.auth.AbandonSession(ctx, "ABC1234567")

	if _, err := f.auth.Session("ABC1234567"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if len(f.events.abandoned) != 1 {
		t.Fatalf("expected 1 abandoned event, got %d", len(f.events.abandoned))
	}
	if f.events.abandoned[0].Phase != string(StateIdentitySubmitted) {
		t.Fatalf("expected identity_submitted phase, got %q", f.events.abandoned[0].Phase)
	}
}

func TestOperationsWithoutSession(t *testing.T) {
	f := newAuthFixture(t, sensor.NewStatic(true))
	ctx := context.Background()

	if _, err := f.auth.PerformBiometricScan(ctx, "ABC1234567"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.auth.RequestOTPFallback(ctx, "ABC1234567"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := f.auth.VerifyOTP(ctx, "ABC1234567", "123456"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
