package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/transport/http/middleware"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

// VotingHandler exposes the candidate-selection and commit endpoints. All
// routes require the session capability issued at authentication.
type VotingHandler struct {
	voting    *usecase.VotingService
	telemetry VotingTelemetry
}

// VotingTelemetry receives commit counters from the handler. Nil-safe.
type VotingTelemetry interface {
	VoteCommitted(duration time.Duration)
	CommitFailed(reason string)
}

// NewVotingHandler constructs VotingHandler.
func NewVotingHandler(voting *usecase.VotingService, telemetry VotingTelemetry) *VotingHandler {
	return &VotingHandler{voting: voting, telemetry: telemetry}
}

// RegisterRoutes binds voting routes onto an authenticated group.
func (h *VotingHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/candidates", h.candidates)
	r.PUT("/selection", h.selectCandidate)
	r.POST("/confirmation", h.requestConfirmation)
	r.DELETE("/confirmation", h.cancelConfirmation)
	r.POST("/commit", h.commit)
}

var votingErrorCases = []ErrorCase{
	{Err: usecase.ErrUnauthorized, Status: http.StatusUnauthorized, Message: "authenticated session required"},
	{Err: usecase.ErrNoSelection, Status: http.StatusConflict, Message: "no candidate selected"},
	{Err: usecase.ErrConfirmationRequired, Status: http.StatusConflict, Message: "confirmation required before commit"},
	{Err: domain.ErrUnknownCandidate, Status: http.StatusBadRequest, Message: "candidate is not on the ballot"},
	{Err: domain.ErrAlreadyVoted, Status: http.StatusConflict, Message: "a vote has already been recorded for this voter"},
	{Err: domain.ErrLedgerUnavailable, Status: http.StatusBadGateway, Message: "ledger unavailable; retry commit"},
}

func (h *VotingHandler) candidates(c *gin.Context) {
	voterID := middleware.GetVoterID(c)

	list, err := h.voting.Candidates(c.Request.Context(), voterID)
	if err != nil {
		RespondWithMappedError(c, err, votingErrorCases, http.StatusInternalServerError, "failed to load candidates")
		return
	}

	views := make([]CandidateView, 0, len(list))
	for _, candidate := range list {
		views = append(views, newCandidateView(candidate))
	}

	c.JSON(http.StatusOK, CandidateListResponse{Candidates: views})
}

func (h *VotingHandler) selectCandidate(c *gin.Context) {
	var req SelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid selection payload"))
		return
	}

	voterID := middleware.GetVoterID(c)

	selected, err := h.voting.SelectCandidate(c.Request.Context(), voterID, req.CandidateID)
	if err != nil {
		RespondWithMappedError(c, err, votingErrorCases, http.StatusInternalServerError, "failed to record selection")
		return
	}

	c.JSON(http.StatusOK, SelectionResponse{Selected: newCandidateView(selected)})
}

func (h *VotingHandler) requestConfirmation(c *gin.Context) {
	voterID := middleware.GetVoterID(c)

	pending, err := h.voting.RequestConfirmation(voterID)
	if err != nil {
		RespondWithMappedError(c, err, votingErrorCases, http.StatusInternalServerError, "failed to request confirmation")
		return
	}

	c.JSON(http.StatusOK, ConfirmationResponse{
		Pending:    newCandidateView(pending),
		Confirming: true,
	})
}

func (h *VotingHandler) cancelConfirmation(c *gin.Context) {
	voterID := middleware.GetVoterID(c)

	if err := h.voting.CancelConfirmation(voterID); err != nil {
		RespondWithMappedError(c, err, votingErrorCases, http.StatusInternalServerError, "failed to cancel confirmation")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "confirmation cancelled"})
}

func (h *VotingHandler) commit(c *gin.Context) {
	capability, ok := middleware.GetCapability(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authenticated session required"))
		return
	}

	start := time.Now()
	record, err := h.voting.Commit(c.Request.Context(), capability)
	if err != nil {
		if h.telemetry != nil {
			h.telemetry.CommitFailed(commitFailureReason(err))
		}
		RespondWithMappedError(c, err, votingErrorCases, http.StatusInternalServerError, "failed to commit vote")
		return
	}

	if h.telemetry != nil {
		h.telemetry.VoteCommitted(time.Since(start))
	}

	c.JSON(http.StatusCreated, VoteRecordResponse{
		VoterID:        record.VoterID,
		CandidateID:    record.CandidateID,
		TransactionRef: record.TransactionRef,
		CommittedAt:    record.CommittedAt,
	})
}

func commitFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return "ledger_unavailable"
	case errors.Is(err, usecase.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, usecase.ErrNoSelection):
		return "no_selection"
	case errors.Is(err, usecase.ErrConfirmationRequired):
		return "not_confirmed"
	default:
		return "internal"
	}
}
