package domain

import "time"

// VerificationMethod identifies which factor completed authentication.
type VerificationMethod string

const (
	VerifiedViaBiometric VerificationMethod = "biometric"
	VerifiedViaOTP       VerificationMethod = "otp"
)

// BiometricState enumerates the per-session biometric challenge states.
type BiometricState string

const (
	BiometricIdle             BiometricState = "idle"
	BiometricScanning         BiometricState = "scanning"
	BiometricVerified         BiometricState = "verified"
	BiometricFallbackRequired BiometricState = "fallback_required"
)

// BiometricAttemptState tracks scan attempts and cooldown for one session.
// Owned exclusively by the biometric challenge; reset only when a new
// session starts.
type BiometricAttemptState struct {
	AttemptCount  int
	CooldownUntil *time.Time
}

// OTPState holds the currently issued one-time code for a voter. Only the
// most recently issued code is ever valid; the code itself is stored as a
// SHA-256 hash, never in plaintext.
type OTPState struct {
	CodeHash          string
	IssuedAt          time.Time
	ResendAvailableAt time.Time
	Attempts          int
}

// AuthenticatedSession is the capability proving a voter completed
// multi-factor verification. It lives in process memory for the duration
// of one voting session and is discarded after commit or abandonment.
type AuthenticatedSession struct {
	VoterID     string
	VerifiedVia VerificationMethod
	IssuedAt    time.Time
}
