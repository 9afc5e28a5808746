// Package eventbus moves domain events between the application layer and
// consumers, either in process or through a RabbitMQ topic exchange.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/escrowly/internal/shared/domain"
)

// ConsumedEvent is the JSON envelope every event travels in.
type ConsumedEvent struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	Metadata      EventMetadata   `json:"metadata"`
}

// EventMetadata mirrors domain.EventMetadata on the wire.
type EventMetadata struct {
	UserID        uuid.UUID `json:"user_id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
	CausationID   uuid.UUID `json:"causation_id"`
}

// Decode unmarshals the payload into v.
func (e *ConsumedEvent) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.EventID)
	}
	return json.Unmarshal(e.Payload, v)
}

// Envelope wraps a domain event. The envelope fields come from the event's
// accessors; the concrete event body becomes the payload.
func Envelope(event domain.DomainEvent) (*ConsumedEvent, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.RoutingKey(), err)
	}
	md := event.Metadata()
	return &ConsumedEvent{
		EventID:       event.EventID(),
		AggregateID:   event.AggregateID(),
		AggregateType: event.AggregateType(),
		RoutingKey:    event.RoutingKey(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Metadata: EventMetadata{
			UserID:        md.UserID,
			CorrelationID: md.CorrelationID,
			CausationID:   md.CausationID,
		},
	}, nil
}

// Marshal encodes a domain event as an envelope.
func Marshal(event domain.DomainEvent) ([]byte, error) {
	env, err := Envelope(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// Publisher sends encoded envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// PublishEvents encodes and publishes events in order, stopping at the
// first failure.
func PublishEvents(ctx context.Context, p Publisher, events ...domain.DomainEvent) error {
	for _, ev := range events {
		data, err := Marshal(ev)
		if err != nil {
			return err
		}
		if err := p.Publish(ctx, ev.RoutingKey(), data); err != nil {
			return fmt.Errorf("publish %s: %w", ev.RoutingKey(), err)
		}
	}
	return nil
}
