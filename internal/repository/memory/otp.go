package memory

import (
	"context"
	"sync"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/repository"
)

type otpEntry struct {
	state     domain.OTPState
	expiresAt time.Time
}

// OTPStore is an in-memory port.OTPStore for development and tests.
type OTPStore struct {
	mu      sync.Mutex
	entries map[string]otpEntry
	now     func() time.Time
}

// NewOTPStore constructs an empty in-memory OTP store.
func NewOTPStore() *OTPStore {
	return &OTPStore{
		entries: make(map[string]otpEntry),
		now:     time.Now,
	}
}

// Put stores the issued code state, replacing any previous one.
func (s *OTPStore) Put(_ context.Context, voterID string, state domain.OTPState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[voterID] = otpEntry{
		state:     state,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// Get retrieves the currently issued code state for the voter.
func (s *OTPStore) Get(_ context.Context, voterID string) (*domain.OTPState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[voterID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, voterID)
		return nil, repository.ErrNotFound
	}

	state := entry.state
	return &state, nil
}

// IncrementAttempts increments the failed validation counter and returns the new value.
func (s *OTPStore) IncrementAttempts(_ context.Context, voterID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[voterID]
	if !ok || s.now().After(entry.expiresAt) {
		delete(s.entries, voterID)
		return 0, repository.ErrNotFound
	}

	entry.state.Attempts++
	s.entries[voterID] = entry
	return entry.state.Attempts, nil
}

// Delete removes the code state, enforcing single-use semantics.
func (s *OTPStore) Delete(_ context.Context, voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[voterID]; !ok {
		return repository.ErrNotFound
	}
	delete(s.entries, voterID)
	return nil
}

// WithClock overrides the internal clock, used in tests.
func (s *OTPStore) WithClock(clock func() time.Time) *OTPStore {
	if clock != nil {
		s.now = clock
	}
	return s
}

var _ port.OTPStore = (*OTPStore)(nil)
