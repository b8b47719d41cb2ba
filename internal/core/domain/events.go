package domain

import "time"

// SessionStartedEvent is published when a voter id passes format validation
// and a verification session begins.
type SessionStartedEvent struct {
	VoterID   string
	StartedAt time.Time
	Metadata  map[string]string
}

// VoterAuthenticatedEvent is published when either factor completes.
type VoterAuthenticatedEvent struct {
	VoterID         string
	Method          VerificationMethod
	AuthenticatedAt time.Time
	Metadata        map[string]string
}

// VoteCommittedEvent is published after the ledger accepts a vote.
// VoterID is masked before publication; the clear id never leaves the core.
type VoteCommittedEvent struct {
	VoterID        string
	CandidateID    int
	TransactionRef string
	CommittedAt    time.Time
	Metadata       map[string]string
}

// SessionAbandonedEvent is published when a session is discarded before commit.
type SessionAbandonedEvent struct {
	VoterID     string
	Phase       string
	AbandonedAt time.Time
	Metadata    map[string]string
}

// OTPDispatchRequestedEvent asks the delivery pipeline to send a code to
// the voter's registered contact channel. Published only to the restricted
// dispatch topic, never to the audit stream.
type OTPDispatchRequestedEvent struct {
	VoterID     string
	RequestID   string
	Code        string
	RequestedAt time.Time
}
