package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/config"
)

const schemaVersion = "1.0"

const (
	topicSessionStarted     = "session.started"
	topicVoterAuthenticated = "session.authenticated"
	topicVoteCommitted      = "vote.committed"
	topicSessionAbandoned   = "session.abandoned"
)

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	VoterID   string           `json:"voter_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventType, voterID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   uuid.NewString(),
		EventType: eventType,
		VoterID:   voterID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Key:   sarama.StringEncoder(voterID),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishSessionStarted emits session.started events.
func (p *EventPublisher) PublishSessionStarted(ctx context.Context, event domain.SessionStartedEvent) error {
	payload := map[string]any{
		"voter_id":   event.VoterID,
		"started_at": event.StartedAt,
		"metadata":   event.Metadata,
	}
	return p.publish(ctx, topicSessionStarted, event.VoterID, event.StartedAt, payload)
}

// PublishVoterAuthenticated emits session.authenticated events.
func (p *EventPublisher) PublishVoterAuthenticated(ctx context.Context, event domain.VoterAuthenticatedEvent) error {
	payload := map[string]any{
		"voter_id":         event.VoterID,
		"method":           event.Method,
		"authenticated_at": event.AuthenticatedAt,
		"metadata":         event.Metadata,
	}
	return p.publish(ctx, topicVoterAuthenticated, event.VoterID, event.AuthenticatedAt, payload)
}

// PublishVoteCommitted emits vote.committed events.
func (p *EventPublisher) PublishVoteCommitted(ctx context.Context, event domain.VoteCommittedEvent) error {
	payload := map[string]any{
		"voter_id":        event.VoterID,
		"candidate_id":    event.CandidateID,
		"transaction_ref": event.TransactionRef,
		"committed_at":    event.CommittedAt,
		"metadata":        event.Metadata,
	}
	return p.publish(ctx, topicVoteCommitted, event.VoterID, event.CommittedAt, payload)
}

// PublishSessionAbandoned emits session.abandoned events.
func (p *EventPublisher) PublishSessionAbandoned(ctx context.Context, event domain.SessionAbandonedEvent) error {
	payload := map[string]any{
		"voter_id":     event.VoterID,
		"phase":        event.Phase,
		"abandoned_at": event.AbandonedAt,
		"metadata":     event.Metadata,
	}
	return p.publish(ctx, topicSessionAbandoned, event.VoterID, event.AbandonedAt, payload)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
