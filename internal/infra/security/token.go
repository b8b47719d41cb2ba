package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

var (
	// ErrInvalidSessionToken indicates the token is malformed or its signature failed validation.
	ErrInvalidSessionToken = errors.New("invalid session token")
	// ErrExpiredSessionToken indicates the token aged past its TTL.
	ErrExpiredSessionToken = errors.New("session token expired")
)

// SessionTokenClaims augments registered claims with the verification method.
type SessionTokenClaims struct {
	VerifiedVia string `json:"vrf"`
	jwt.RegisteredClaims
}

// SessionTokenIssuer signs and parses the capability tokens handed to a
// voter once authentication completes. The in-memory session registry
// remains the source of truth; the token only carries the claim across
// HTTP requests.
type SessionTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionTokenIssuer constructs an issuer with an HS256 signing secret.
func NewSessionTokenIssuer(secret, issuer string, ttl time.Duration) (*SessionTokenIssuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session token secret is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SessionTokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// WithClock overrides the internal clock, used in tests.
func (i *SessionTokenIssuer) WithClock(clock func() time.Time) *SessionTokenIssuer {
	if clock != nil {
		i.now = clock
	}
	return i
}

// Issue signs a capability token for the authenticated session.
func (i *SessionTokenIssuer) Issue(session domain.AuthenticatedSession) (string, error) {
	if session.VoterID == "" {
		return "", fmt.Errorf("voter id is required")
	}

	now := i.now().UTC()
	claims := SessionTokenClaims{
		VerifiedVia: string(session.VerifiedVia),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.VoterID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}

	return signed, nil
}

// Parse validates the token and reconstructs the session claim.
func (i *SessionTokenIssuer) Parse(token string) (domain.AuthenticatedSession, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.AuthenticatedSession{}, ErrInvalidSessionToken
	}

	claims := &SessionTokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithTimeFunc(func() time.Time { return i.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.AuthenticatedSession{}, ErrExpiredSessionToken
		}
		return domain.AuthenticatedSession{}, ErrInvalidSessionToken
	}

	if parsed == nil || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return domain.AuthenticatedSession{}, ErrInvalidSessionToken
	}

	session := domain.AuthenticatedSession{
		VoterID:     claims.Subject,
		VerifiedVia: domain.VerificationMethod(claims.VerifiedVia),
	}
	if claims.IssuedAt != nil {
		session.IssuedAt = claims.IssuedAt.Time
	}

	return session, nil
}
