package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// StartSessionRequest opens a verification session for a voter.
type StartSessionRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
}

// SessionResponse describes the verification session state.
type SessionResponse struct {
	VoterID   string    `json:"voter_id"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

// BiometricScanRequest identifies the session performing a scan attempt.
type BiometricScanRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
}

// BiometricScanResponse reports the outcome of one scan attempt.
type BiometricScanResponse struct {
	Verified          bool       `json:"verified"`
	FallbackRequired  bool       `json:"fallback_required"`
	RemainingAttempts int        `json:"remaining_attempts"`
	CooldownUntil     *time.Time `json:"cooldown_until,omitempty"`
	Method            string     `json:"method,omitempty"`
	SessionToken      string     `json:"session_token,omitempty"`
}

// OTPRequest identifies the session switching to or driving the OTP factor.
type OTPRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
}

// OTPIssueResponse reports when the code was issued and when it can be resent.
type OTPIssueResponse struct {
	IssuedAt          time.Time `json:"issued_at"`
	ResendAvailableAt time.Time `json:"resend_available_at"`
	ExpiresAt         time.Time `json:"expires_at"`
}

// OTPVerifyRequest carries the submitted code.
type OTPVerifyRequest struct {
	VoterID string `json:"voter_id" binding:"required"`
	Code    string `json:"code" binding:"required"`
}

// AuthResponse is returned once a verification factor succeeds.
type AuthResponse struct {
	VoterID      string    `json:"voter_id"`
	Method       string    `json:"method"`
	IssuedAt     time.Time `json:"issued_at"`
	SessionToken string    `json:"session_token"`
}

// CandidateView is the API projection of a ballot entry.
type CandidateView struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Party  string `json:"party"`
	Symbol string `json:"symbol"`
}

// CandidateListResponse wraps the ballot.
type CandidateListResponse struct {
	Candidates []CandidateView `json:"candidates"`
}

// SelectionRequest records or replaces the pending selection.
type SelectionRequest struct {
	CandidateID int `json:"candidate_id" binding:"required"`
}

// SelectionResponse echoes the recorded selection.
type SelectionResponse struct {
	Selected CandidateView `json:"selected"`
}

// ConfirmationResponse exposes the candidate pending confirmation.
type ConfirmationResponse struct {
	Pending    CandidateView `json:"pending"`
	Confirming bool          `json:"confirming"`
}

// VoteRecordResponse is the committed vote record returned by commit.
type VoteRecordResponse struct {
	VoterID        string    `json:"voter_id"`
	CandidateID    int       `json:"candidate_id"`
	TransactionRef string    `json:"transaction_ref"`
	CommittedAt    time.Time `json:"committed_at"`
}

// ReceiptResponse is the displayable receipt for a committed vote.
type ReceiptResponse struct {
	VoterID        string        `json:"voter_id"`
	Candidate      CandidateView `json:"candidate"`
	TransactionRef string        `json:"transaction_ref"`
	ShortRef       string        `json:"short_ref"`
	CommittedAt    time.Time     `json:"committed_at"`
}

// RedirectResponse tells the client the flow must restart from login.
type RedirectResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
	TraceID  string `json:"trace_id,omitempty"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse describes dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func newCandidateView(c domain.Candidate) CandidateView {
	return CandidateView{
		ID:     c.ID,
		Name:   c.Name,
		Party:  c.Party,
		Symbol: c.Symbol,
	}
}
