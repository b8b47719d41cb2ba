package sensor

import (
	"context"
	"sync"

	"github.com/voteguard/evote-sessions/internal/core/port"
)

// Static returns a scripted sequence of scan outcomes and then repeats the
// final one. Used in development environments without capture hardware and
// in tests that need a deterministic sensor.
type Static struct {
	mu       sync.Mutex
	outcomes []bool
	next     int
}

// NewStatic constructs a scripted sensor. With no outcomes every scan
// matches.
func NewStatic(outcomes ...bool) *Static {
	return &Static{outcomes: outcomes}
}

// Scan returns the next scripted outcome.
func (s *Static) Scan(_ context.Context, _ string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.outcomes) == 0 {
		return true, nil
	}

	outcome := s.outcomes[s.next]
	if s.next < len(s.outcomes)-1 {
		s.next++
	}
	return outcome, nil
}

var _ port.BiometricSensor = (*Static)(nil)
