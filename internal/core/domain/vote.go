package domain

import "time"

// NOTACandidateID is the reserved abstention entry ("none of the above").
// It is a regular catalog member and valid to vote for.
const NOTACandidateID = 5

// Candidate is an immutable catalog entry supplied by the election authority.
type Candidate struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Party  string `json:"party"`
	Symbol string `json:"symbol"`
}

// VoteRecord is the durable result of a committed vote. Created exactly
// once per voter and never mutated afterwards. TransactionRef is opaque
// and assigned by the ledger.
type VoteRecord struct {
	VoterID        string
	CandidateID    int
	TransactionRef string
	CommittedAt    time.Time
}

// Complete reports whether every field required for receipt display is present.
func (r VoteRecord) Complete() bool {
	return r.VoterID != "" && r.CandidateID != 0 && r.TransactionRef != "" && !r.CommittedAt.IsZero()
}
