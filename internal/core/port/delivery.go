package port

import "context"

// OTPDeliveryService dispatches a one-time code to the voter's registered
// contact channel. Fire-and-forget from the caller's perspective; a failed
// dispatch surfaces as domain.ErrDeliveryFailed.
type OTPDeliveryService interface {
	Send(ctx context.Context, voterID, code string) error
}
