package usecase

import (
	"github.com/voteguard/evote-sessions/internal/core/domain"
)

// IdentityValidator checks submitted voter identifiers against the fixed
// electoral roll format. Pure and deterministic; no side effects.
type IdentityValidator struct{}

// NewIdentityValidator constructs an IdentityValidator.
func NewIdentityValidator() *IdentityValidator {
	return &IdentityValidator{}
}

// Validate returns the validated identity or a format error
// (domain.ErrEmptyVoterID, domain.ErrMalformedVoterID).
func (v *IdentityValidator) Validate(raw string) (domain.VoterIdentity, error) {
	return domain.NewVoterIdentity(raw)
}
