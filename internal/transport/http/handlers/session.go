package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

// SessionHandler exposes the verification session endpoints: identity
// submission, the biometric challenge, and the OTP fallback.
type SessionHandler struct {
	auth      *usecase.AuthService
	telemetry SessionTelemetry
}

// SessionTelemetry receives flow counters from the handler. Nil-safe.
type SessionTelemetry interface {
	SessionStarted()
	SessionAbandoned()
	BiometricAttempt(outcome string)
	OTPIssued()
	OTPValidation(outcome string)
	Authenticated(method string)
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(auth *usecase.AuthService, telemetry SessionTelemetry) *SessionHandler {
	return &SessionHandler{auth: auth, telemetry: telemetry}
}

// RegisterRoutes binds session lifecycle routes. Optional middleware guards
// session creation and OTP issuance separately.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup, startMiddlewares, otpMiddlewares []gin.HandlerFunc) {
	r.POST("", withChain(startMiddlewares, h.start)...)
	r.DELETE("", h.abandon)
	r.POST("/biometric/scan", h.biometricScan)
	r.POST("/otp", withChain(otpMiddlewares, h.requestOTP)...)
	r.POST("/otp/resend", withChain(otpMiddlewares, h.resendOTP)...)
	r.POST("/otp/verify", h.verifyOTP)
}

func withChain(middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := append([]gin.HandlerFunc{}, middlewares...)
	return append(chain, handler)
}

func (h *SessionHandler) start(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid session payload"))
		return
	}

	session, err := h.auth.StartSession(c.Request.Context(), req.VoterID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: domain.ErrEmptyVoterID, Status: http.StatusBadRequest, Message: "voter id is required"},
			{Err: domain.ErrMalformedVoterID, Status: http.StatusBadRequest, Message: "voter id must match AAA0000000 format"},
		}, http.StatusInternalServerError, "failed to start session")
		return
	}

	if h.telemetry != nil {
		h.telemetry.SessionStarted()
	}

	c.JSON(http.StatusCreated, SessionResponse{
		VoterID:   session.VoterID(),
		State:     string(session.State()),
		StartedAt: session.StartedAt(),
	})
}

func (h *SessionHandler) abandon(c *gin.Context) {
	voterID := c.Query("voter_id")
	if voterID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "voter_id query parameter is required"))
		return
	}

	h.auth.AbandonSession(c.Request.Context(), voterID)

	if h.telemetry != nil {
		h.telemetry.SessionAbandoned()
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session discarded"})
}

func (h *SessionHandler) biometricScan(c *gin.Context) {
	var req BiometricScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid scan payload"))
		return
	}

	outcome, err := h.auth.PerformBiometricScan(c.Request.Context(), req.VoterID)
	if err != nil {
		if h.telemetry != nil {
			h.telemetry.BiometricAttempt("error")
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "no active session for voter"},
			{Err: usecase.ErrAlreadyAuthenticated, Status: http.StatusConflict, Message: "session already authenticated"},
			{Err: usecase.ErrInvalidTransition, Status: http.StatusConflict, Message: "biometric scan not available in current state"},
			{Err: usecase.ErrScanInProgress, Status: http.StatusConflict, Message: "a scan is already in progress"},
			{Err: usecase.ErrCooldownActive, Status: http.StatusTooManyRequests, Message: "scan cooldown active"},
			{Err: usecase.ErrChallengeDecided, Status: http.StatusConflict, Message: "biometric challenge already decided"},
			{Err: domain.ErrSensorUnavailable, Status: http.StatusBadGateway, Message: "biometric sensor unavailable"},
		}, http.StatusInternalServerError, "biometric scan failed")
		return
	}

	resp := BiometricScanResponse{
		Verified:          outcome.Verified,
		FallbackRequired:  outcome.FallbackRequired,
		RemainingAttempts: outcome.RemainingAttempts,
		CooldownUntil:     outcome.CooldownUntil,
	}

	if h.telemetry != nil {
		switch {
		case outcome.Verified:
			h.telemetry.BiometricAttempt("matched")
			h.telemetry.Authenticated(string(domain.VerifiedViaBiometric))
		case outcome.FallbackRequired:
			h.telemetry.BiometricAttempt("fallback")
		default:
			h.telemetry.BiometricAttempt("no_match")
		}
	}

	if outcome.Verified && outcome.Session != nil {
		resp.Method = string(outcome.Session.VerifiedVia)
		resp.SessionToken = outcome.Token
	}

	c.JSON(http.StatusOK, resp)
}

func (h *SessionHandler) requestOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid otp payload"))
		return
	}

	receipt, err := h.auth.RequestOTPFallback(c.Request.Context(), req.VoterID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "no active session for voter"},
			{Err: usecase.ErrAlreadyAuthenticated, Status: http.StatusConflict, Message: "session already authenticated"},
			{Err: usecase.ErrInvalidTransition, Status: http.StatusConflict, Message: "otp fallback not available in current state"},
			{Err: domain.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: "failed to deliver one-time code"},
		}, http.StatusInternalServerError, "failed to issue one-time code")
		return
	}

	if h.telemetry != nil {
		h.telemetry.OTPIssued()
	}

	c.JSON(http.StatusOK, OTPIssueResponse{
		IssuedAt:          receipt.IssuedAt,
		ResendAvailableAt: receipt.ResendAvailableAt,
		ExpiresAt:         receipt.ExpiresAt,
	})
}

func (h *SessionHandler) resendOTP(c *gin.Context) {
	var req OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid otp payload"))
		return
	}

	receipt, err := h.auth.ResendOTP(c.Request.Context(), req.VoterID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "no active session for voter"},
			{Err: usecase.ErrInvalidTransition, Status: http.StatusConflict, Message: "otp resend not available in current state"},
			{Err: usecase.ErrCooldownActive, Status: http.StatusTooManyRequests, Message: "resend cooldown active"},
			{Err: domain.ErrDeliveryFailed, Status: http.StatusBadGateway, Message: "failed to deliver one-time code"},
		}, http.StatusInternalServerError, "failed to resend one-time code")
		return
	}

	if h.telemetry != nil {
		h.telemetry.OTPIssued()
	}

	c.JSON(http.StatusOK, OTPIssueResponse{
		IssuedAt:          receipt.IssuedAt,
		ResendAvailableAt: receipt.ResendAvailableAt,
		ExpiresAt:         receipt.ExpiresAt,
	})
}

func (h *SessionHandler) verifyOTP(c *gin.Context) {
	var req OTPVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid otp payload"))
		return
	}

	result, err := h.auth.VerifyOTP(c.Request.Context(), req.VoterID, req.Code)
	if err != nil {
		if h.telemetry != nil {
			h.telemetry.OTPValidation("rejected")
		}
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "no active session for voter"},
			{Err: usecase.ErrAlreadyAuthenticated, Status: http.StatusConflict, Message: "session already authenticated"},
			{Err: usecase.ErrInvalidTransition, Status: http.StatusConflict, Message: "otp verification not available in current state"},
			{Err: usecase.ErrMalformedCode, Status: http.StatusBadRequest, Message: "code must be six digits"},
			{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "incorrect code"},
			{Err: usecase.ErrCodeExpired, Status: http.StatusGone, Message: "code expired; request a new one"},
		}, http.StatusInternalServerError, "otp verification failed")
		return
	}

	if h.telemetry != nil {
		h.telemetry.OTPValidation("accepted")
		h.telemetry.Authenticated(string(domain.VerifiedViaOTP))
	}

	c.JSON(http.StatusOK, AuthResponse{
		VoterID:      result.Session.VoterID,
		Method:       string(result.Session.VerifiedVia),
		IssuedAt:     result.Session.IssuedAt,
		SessionToken: result.Token,
	})
}
