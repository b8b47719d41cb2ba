package domain

import "errors"

var (
	// ErrEmptyVoterID indicates the submitted identifier was blank.
	ErrEmptyVoterID = errors.New("voter id is required")
	// ErrMalformedVoterID indicates the identifier does not match the roll format.
	ErrMalformedVoterID = errors.New("voter id does not match required format")
	// ErrAlreadyVoted indicates a vote record already exists for the voter. Terminal.
	ErrAlreadyVoted = errors.New("vote already recorded for voter")
	// ErrLedgerUnavailable indicates the ledger could not accept the submission. Retryable.
	ErrLedgerUnavailable = errors.New("ledger service unavailable")
	// ErrSensorUnavailable indicates the biometric sensor could not complete a read. Retryable.
	ErrSensorUnavailable = errors.New("biometric sensor unavailable")
	// ErrDeliveryFailed indicates the OTP could not be dispatched. Retryable.
	ErrDeliveryFailed = errors.New("otp delivery failed")
	// ErrUnknownCandidate indicates the candidate id is not in the catalog.
	ErrUnknownCandidate = errors.New("unknown candidate")
)
