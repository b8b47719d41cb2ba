package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/logger"
)

// Restricted topic consumed only by the SMS gateway; kept off the audit stream.
const topicOTPDispatch = "otp.dispatch"

// OTPDispatcher implements port.OTPDeliveryService by handing codes to the
// downstream delivery pipeline over Kafka.
type OTPDispatcher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewOTPDispatcher constructs a Kafka-backed OTP delivery service.
func NewOTPDispatcher(producer *Producer, logger *zap.Logger) *OTPDispatcher {
	return &OTPDispatcher{producer: producer, logger: logger}
}

// Send publishes a dispatch request for the voter's registered channel.
func (d *OTPDispatcher) Send(ctx context.Context, voterID, code string) error {
	event := domain.OTPDispatchRequestedEvent{
		VoterID:     voterID,
		RequestID:   uuid.NewString(),
		Code:        code,
		RequestedAt: time.Now().UTC(),
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal otp dispatch: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: d.producer.TopicName(topicOTPDispatch),
		Key:   sarama.StringEncoder(voterID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case d.producer.Producer().Input() <- message:
		d.logger.Info("otp dispatch requested",
			zap.String("voter_id", logger.MaskVoterID(voterID)),
			zap.String("request_id", event.RequestID),
		)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ port.OTPDeliveryService = (*OTPDispatcher)(nil)
