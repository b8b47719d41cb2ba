package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/infra/security"
)

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// RequireCapability validates the Authorization header and extracts the
// session capability issued at authentication. The in-memory session
// registry remains the source of truth; downstream handlers re-check it.
func RequireCapability(tokens *security.SessionTokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "invalid authorization format: expected 'Bearer <token>'"))
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing session token"))
			return
		}

		capability, err := tokens.Parse(token)
		if err != nil {
			switch {
			case errors.Is(err, security.ErrExpiredSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "session token expired"))
			case errors.Is(err, security.ErrInvalidSessionToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					newErrorResponse(c, "invalid session token"))
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					newErrorResponse(c, "authentication failed"))
			}
			return
		}

		c.Set(VoterIDKey, capability.VoterID)
		c.Set(CapabilityKey, capability)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.VoterID = capability.VoterID
		}

		c.Next()
	}
}

// GetCapability retrieves the parsed session capability from the context.
func GetCapability(c *gin.Context) (domain.AuthenticatedSession, bool) {
	value, exists := c.Get(CapabilityKey)
	if !exists {
		return domain.AuthenticatedSession{}, false
	}
	capability, ok := value.(domain.AuthenticatedSession)
	return capability, ok
}

// GetVoterID retrieves the authenticated voter id from the context.
func GetVoterID(c *gin.Context) string {
	if id, exists := c.Get(VoterIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}
