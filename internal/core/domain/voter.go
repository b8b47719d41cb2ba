package domain

import (
	"regexp"
	"strings"
)

// voterIDPattern is the fixed electoral roll format: three uppercase
// letters followed by seven digits, e.g. ABC1234567.
var voterIDPattern = regexp.MustCompile(`^[A-Z]{3}[0-9]{7}$`)

// VoterIdentity is a validated voter identifier. Instances are only
// produced by NewVoterIdentity and are immutable afterwards.
type VoterIdentity struct {
	id string
}

// NewVoterIdentity validates the raw identifier against the roll format.
func NewVoterIdentity(raw string) (VoterIdentity, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return VoterIdentity{}, ErrEmptyVoterID
	}
	if !voterIDPattern.MatchString(trimmed) {
		return VoterIdentity{}, ErrMalformedVoterID
	}
	return VoterIdentity{id: trimmed}, nil
}

// ID returns the validated identifier string.
func (v VoterIdentity) ID() string {
	return v.id
}

// IsZero reports whether the identity has not been through validation.
func (v VoterIdentity) IsZero() bool {
	return v.id == ""
}
