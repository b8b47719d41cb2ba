package port

import "context"

// BiometricSensor abstracts the fingerprint reader. A scan yields a plain
// match/no-match outcome; latency and failure modes are the device's concern.
type BiometricSensor interface {
	// Scan performs one capture-and-match cycle for the voter. Transport or
	// device failures surface as domain.ErrSensorUnavailable.
	Scan(ctx context.Context, voterID string) (bool, error)
}
