package usecase

import (
	"sync"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// AuthState enumerates the controller states for one verification session.
type AuthState string

const (
	StateIdentitySubmitted AuthState = "identity_submitted"
	StateBiometricPending  AuthState = "biometric_pending"
	StateOTPPending        AuthState = "otp_pending"
	StateAuthenticated     AuthState = "authenticated"
)

// VoterSession owns all mutable per-voter state: the authentication phase,
// the biometric challenge, and the vote-casting progress. Sessions live in
// process memory only; abandoning one discards everything.
type VoterSession struct {
	mu sync.Mutex

	identity  domain.VoterIdentity
	state     AuthState
	biometric *BiometricChallenge
	auth      *domain.AuthenticatedSession
	startedAt time.Time

	catalog    []domain.Candidate
	selection  *domain.Candidate
	confirming bool
	record     *domain.VoteRecord
}

// VoterID returns the validated voter identifier owning this session.
func (s *VoterSession) VoterID() string {
	return s.identity.ID()
}

// State returns the current authentication state.
func (s *VoterSession) State() AuthState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartedAt returns when the session was opened.
func (s *VoterSession) StartedAt() time.Time {
	return s.startedAt
}

// Authenticated returns the session capability once verification completed.
func (s *VoterSession) Authenticated() *domain.AuthenticatedSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auth == nil {
		return nil
	}
	copied := *s.auth
	return &copied
}

// Record returns the committed vote record, if any.
func (s *VoterSession) Record() *domain.VoteRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil
	}
	copied := *s.record
	return &copied
}

// SessionRegistry keys live sessions by voter id. Sessions for different
// voters share no state; the registry only guards the map itself.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*VoterSession
}

// NewSessionRegistry constructs an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*VoterSession)}
}

// Get returns the live session for the voter, if present.
func (r *SessionRegistry) Get(voterID string) (*VoterSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[voterID]
	return session, ok
}

// Put registers the session, replacing any previous one for the voter.
func (r *SessionRegistry) Put(session *VoterSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.VoterID()] = session
}

// Delete removes the voter's session.
func (r *SessionRegistry) Delete(voterID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, voterID)
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
