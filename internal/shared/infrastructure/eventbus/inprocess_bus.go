package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// InProcessEventBus delivers events synchronously to local consumers. It is
// the publisher used when no broker is configured.
type InProcessEventBus struct {
	registry *ConsumerRegistry
	logger   *slog.Logger
	mu       sync.Mutex
}

var _ Publisher = (*InProcessEventBus)(nil)

// NewInProcessEventBus creates a bus with its own registry.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{registry: NewConsumerRegistry(logger), logger: logger}
}

// Subscribe registers a consumer.
func (b *InProcessEventBus) Subscribe(c EventConsumer) {
	b.registry.Register(c)
}

// Registry exposes the underlying registry.
func (b *InProcessEventBus) Registry() *ConsumerRegistry { return b.registry }

// Publish decodes the envelope and dispatches it. Consumer failures are
// logged, never returned: in local mode the command that raised the event has
// already succeeded.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	var event ConsumedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Error("discarding undecodable event", "routing_key", routingKey, "error", err)
		return nil
	}
	if event.RoutingKey == "" {
		event.RoutingKey = routingKey
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.registry.Dispatch(ctx, &event); err != nil {
		b.logger.Warn("event dispatch failed", "routing_key", routingKey, "event_id", event.EventID, "error", err)
		return nil
	}
	b.logger.Debug("event dispatched", "routing_key", routingKey, "event_id", event.EventID)
	return nil
}

func (b *InProcessEventBus) Close() error { return nil }

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, []byte) error { return nil }
func (NoopPublisher) Close() error                                  { return nil }
