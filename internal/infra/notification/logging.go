package notification

import (
	"context"

	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/logger"
)

// LoggingDelivery records code dispatch events for observability without
// delivering them. Development environments only; the code itself is
// logged so the flow can be exercised end to end without an SMS gateway.
type LoggingDelivery struct {
	log   *zap.Logger
	isDev bool
}

// NewLoggingDelivery constructs a delivery service backed by structured logging.
func NewLoggingDelivery(log *zap.Logger, isDev bool) *LoggingDelivery {
	if log == nil {
		log = zap.NewNop()
	}
	return &LoggingDelivery{log: log, isDev: isDev}
}

// Send logs the dispatch instead of delivering it.
func (d *LoggingDelivery) Send(_ context.Context, voterID, code string) error {
	fields := []zap.Field{
		zap.String("voter_id", logger.MaskVoterID(voterID)),
	}

	if d.isDev {
		fields = append(fields, zap.String("dev_code", code))
	}

	d.log.Info("one-time code dispatch", fields...)
	return nil
}

var _ port.OTPDeliveryService = (*LoggingDelivery)(nil)
