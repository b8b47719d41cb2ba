package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voteguard/evote-sessions/internal/transport/http/middleware"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

// ReceiptHandler exposes the committed vote receipt. When no complete
// record exists the client is redirected to restart from login rather than
// shown a partial receipt.
type ReceiptHandler struct {
	receipts *usecase.ReceiptService
}

// NewReceiptHandler constructs ReceiptHandler.
func NewReceiptHandler(receipts *usecase.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receipts: receipts}
}

// RegisterRoutes binds the receipt route onto an authenticated group.
func (h *ReceiptHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.present)
}

func (h *ReceiptHandler) present(c *gin.Context) {
	voterID := middleware.GetVoterID(c)

	receipt, err := h.receipts.Present(voterID)
	if err != nil {
		if errors.Is(err, usecase.ErrReceiptUnavailable) {
			c.JSON(http.StatusNotFound, RedirectResponse{
				Error:    "no complete vote record for session",
				Redirect: "/login",
				TraceID:  middleware.GetTraceID(c),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load receipt"))
		return
	}

	c.JSON(http.StatusOK, ReceiptResponse{
		VoterID:        receipt.VoterID,
		Candidate:      newCandidateView(receipt.Candidate),
		TransactionRef: receipt.TransactionRef,
		ShortRef:       receipt.ShortRef,
		CommittedAt:    receipt.CommittedAt,
	})
}
