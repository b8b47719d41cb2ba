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
	// ErrSessionNotFound indicates no live session exists for the voter.
	ErrSessionNotFound = errors.New("no active session for voter")
	// ErrInvalidTransition indicates the operation is not valid in the session's current state.
	ErrInvalidTransition = errors.New("operation not valid in current session state")
	// ErrAlreadyAuthenticated indicates verification already completed for this session.
	ErrAlreadyAuthenticated = errors.New("session already authenticated")
)

// AuthConfig bounds the verification flow.
type AuthConfig struct {
	Biometric     BiometricChallengeConfig
	SensorTimeout time.Duration
}

// ScanOutcome is returned to the caller after each biometric attempt.
type ScanOutcome struct {
	Verified          bool
	FallbackRequired  bool
	RemainingAttempts int
	CooldownUntil     *time.Time
	Session           *domain.AuthenticatedSession
	Token             string
}

// AuthResult carries the capability yielded by a completed authentication.
type AuthResult struct {
	Session domain.AuthenticatedSession
	Token   string
}

// TokenIssuer signs capability tokens for authenticated sessions.
type TokenIssuer interface {
	Issue(session domain.AuthenticatedSession) (string, error)
}

// AuthService orchestrates identity validation, the biometric challenge,
// and the OTP fallback into one state machine per voter session:
//
//	IdentitySubmitted -> BiometricPending -> Authenticated(biometric)
//	                                      -> OTPPending -> Authenticated(otp)
//
// Failure anywhere short of Authenticated leaves the session re-enterable
// per the retry rules of each challenge; restarting from identity
// submission resets all counters and cooldowns.
type AuthService struct {
	cfg      AuthConfig
	registry *SessionRegistry
	ids      *IdentityValidator
	sensor   port.BiometricSensor
	otp      *OTPChallenge
	tokens   TokenIssuer
	events   port.EventPublisher
	log      *zap.Logger
	now      func() time.Time
}

// NewAuthService constructs the authentication controller.
func NewAuthService(
	cfg AuthConfig,
	registry *SessionRegistry,
	sensor port.BiometricSensor,
	otp *OTPChallenge,
	tokens TokenIssuer,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.SensorTimeout <= 0 {
		cfg.SensorTimeout = 10 * time.Second
	}
	return &AuthService{
		cfg:      cfg,
		registry: registry,
		ids:      NewIdentityValidator(),
		sensor:   sensor,
		otp:      otp,
		tokens:   tokens,
		events:   events,
		log:      log,
		now:      time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// StartSession validates the submitted identifier and opens a fresh
// verification session, discarding any prior in-flight session for the
// same voter. Counters, cooldowns, and any issued code all reset here and
// only here.
func (s *AuthService) StartSession(ctx context.Context, rawID string) (*VoterSession, error) {
	identity, err := s.ids.Validate(rawID)
	if err != nil {
		return nil, err
	}

	session := &VoterSession{
		identity:  identity,
		state:     StateIdentitySubmitted,
		biometric: NewBiometricChallenge(s.cfg.Biometric).WithClock(s.now),
		startedAt: s.now().UTC(),
	}
	s.registry.Put(session)

	if s.events != nil {
		event := domain.SessionStartedEvent{
			VoterID:   logger.MaskVoterID(identity.ID()),
			StartedAt: session.startedAt,
		}
		if err := s.events.PublishSessionStarted(ctx, event); err != nil {
			s.log.Warn("publish session started", zap.Error(err))
		}
	}

	return session, nil
}

// PerformBiometricScan runs one scan attempt: it claims the challenge,
// reads the sensor with a bounded timeout, and folds the outcome back into
// the state machine. A success authenticates the session; exhausting the
// attempt limit forces the OTP fallback.
func (s *AuthService) PerformBiometricScan(ctx context.Context, voterID string) (*ScanOutcome, error) {
	session, err := s.lookup(voterID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	switch session.state {
	case StateIdentitySubmitted:
		session.state = StateBiometricPending
	case StateBiometricPending:
	case StateAuthenticated:
		session.mu.Unlock()
		return nil, ErrAlreadyAuthenticated
	default:
		session.mu.Unlock()
		return nil, ErrInvalidTransition
	}

	if err := session.biometric.BeginScan(); err != nil {
		session.mu.Unlock()
		return nil, err
	}
	session.mu.Unlock()

	// The sensor read happens outside the session lock so that a second
	// concurrent scan is rejected by state, not serialized behind I/O.
	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.SensorTimeout)
	matched, sensorErr := s.sensor.Scan(scanCtx, session.VoterID())
	cancel()

	session.mu.Lock()
	defer session.mu.Unlock()

	if sensorErr != nil {
		session.biometric.AbortScan()
		s.log.Warn("biometric sensor read failed",
			zap.String("voter_id", logger.MaskVoterID(session.VoterID())),
			zap.Error(sensorErr),
		)
		return nil, domain.ErrSensorUnavailable
	}

	result, err := session.biometric.CompleteScan(matched)
	if err != nil {
		return nil, err
	}

	outcome := &ScanOutcome{
		RemainingAttempts: result.RemainingAttempts,
		CooldownUntil:     result.CooldownUntil,
	}

	switch result.State {
	case domain.BiometricVerified:
		auth, token, err := s.authenticateLocked(ctx, session, domain.VerifiedViaBiometric)
		if err != nil {
			return nil, err
		}
		outcome.Verified = true
		outcome.Session = auth
		outcome.Token = token
	case domain.BiometricFallbackRequired:
		outcome.FallbackRequired = true
	}

	return outcome, nil
}

// RequestOTPFallback switches the session to the OTP factor, either because
// the voter chose "use OTP instead" or because biometric attempts ran out,
// and issues the first code. Biometric state is deliberately left intact:
// only a full session restart resets it.
func (s *AuthService) RequestOTPFallback(ctx context.Context, voterID string) (*IssueReceipt, error) {
	session, err := s.lookup(voterID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	switch session.state {
	case StateIdentitySubmitted, StateBiometricPending:
		session.state = StateOTPPending
	case StateOTPPending:
	case StateAuthenticated:
		session.mu.Unlock()
		return nil, ErrAlreadyAuthenticated
	default:
		session.mu.Unlock()
		return nil, ErrInvalidTransition
	}
	session.mu.Unlock()

	return s.otp.Issue(ctx, session.VoterID())
}

// ResendOTP reissues the code once the resend cooldown has elapsed.
func (s *AuthService) ResendOTP(ctx context.Context, voterID string) (*IssueReceipt, error) {
	session, err := s.lookup(voterID)
	if err != nil {
		return nil, err
	}

	if session.State() != StateOTPPending {
		return nil, ErrInvalidTransition
	}

	return s.otp.Resend(ctx, session.VoterID())
}

// VerifyOTP validates the submitted code and, on success, authenticates
// the session via the OTP factor. Invalid codes leave the session in
// OTPPending for retry.
func (s *AuthService) VerifyOTP(ctx context.Context, voterID, code string) (*AuthResult, error) {
	session, err := s.lookup(voterID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	switch session.state {
	case StateOTPPending:
	case StateAuthenticated:
		return nil, ErrAlreadyAuthenticated
	default:
		return nil, ErrInvalidTransition
	}

	if err := s.otp.Validate(ctx, session.VoterID(), code); err != nil {
		return nil, err
	}

	auth, token, err := s.authenticateLocked(ctx, session, domain.VerifiedViaOTP)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Session: *auth, Token: token}, nil
}

// AbandonSession discards all in-memory state for the voter. No partial
// authentication survives outside the live session.
func (s *AuthService) AbandonSession(ctx context.Context, voterID string) {
	session, ok := s.registry.Get(voterID)
	if !ok {
		return
	}

	phase := string(session.State())
	s.registry.Delete(voterID)

	if s.events != nil {
		event := domain.SessionAbandonedEvent{
			VoterID:     logger.MaskVoterID(voterID),
			Phase:       phase,
			AbandonedAt: s.now().UTC(),
		}
		if err := s.events.PublishSessionAbandoned(ctx, event); err != nil {
			s.log.Warn("publish session abandoned", zap.Error(err))
		}
	}
}

// Session exposes the live session for the voter.
func (s *AuthService) Session(voterID string) (*VoterSession, error) {
	return s.lookup(voterID)
}

func (s *AuthService) lookup(voterID string) (*VoterSession, error) {
	if voterID == "" {
		return nil, ErrSessionNotFound
	}
	session, ok := s.registry.Get(voterID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// authenticateLocked finalizes the session; callers must hold session.mu.
func (s *AuthService) authenticateLocked(ctx context.Context, session *VoterSession, via domain.VerificationMethod) (*domain.AuthenticatedSession, string, error) {
	now := s.now().UTC()
	auth := &domain.AuthenticatedSession{
		VoterID:     session.VoterID(),
		VerifiedVia: via,
		IssuedAt:    now,
	}

	token := ""
	if s.tokens != nil {
		signed, err := s.tokens.Issue(*auth)
		if err != nil {
			return nil, "", fmt.Errorf("issue session token: %w", err)
		}
		token = signed
	}

	session.auth = auth
	session.state = StateAuthenticated

	if s.events != nil {
		event := domain.VoterAuthenticatedEvent{
			VoterID:         logger.MaskVoterID(session.VoterID()),
			Method:          via,
			AuthenticatedAt: now,
		}
		if err := s.events.PublishVoterAuthenticated(ctx, event); err != nil {
			s.log.Warn("publish voter authenticated", zap.Error(err))
		}
	}

	return auth, token, nil
}
