package port

import "context"

// LedgerService records committed votes. Implementations must make the
// duplicate check and the write a single atomic unit per voter id so that
// concurrent submissions for the same voter cannot both succeed.
type LedgerService interface {
	// SubmitVote records a vote and returns the opaque transaction reference.
	// Returns domain.ErrAlreadyVoted when a record already exists for the
	// voter, and domain.ErrLedgerUnavailable for transient failures.
	SubmitVote(ctx context.Context, voterID string, candidateID int) (string, error)
}
