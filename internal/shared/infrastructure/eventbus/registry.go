package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

// EventConsumer handles the routing keys it declares.
type EventConsumer interface {
	EventTypes() []string
	Handle(ctx context.Context, event *ConsumedEvent) error
}

// ConsumerFunc adapts a function to EventConsumer.
type ConsumerFunc struct {
	Types []string
	Fn    func(ctx context.Context, event *ConsumedEvent) error
}

func (c ConsumerFunc) EventTypes() []string { return c.Types }

func (c ConsumerFunc) Handle(ctx context.Context, event *ConsumedEvent) error {
	return c.Fn(ctx, event)
}

// Wildcard subscribes a consumer to every routing key.
const Wildcard = "#"

// ConsumerRegistry fans events out to consumers by routing key.
type ConsumerRegistry struct {
	mu        sync.RWMutex
	consumers map[string][]EventConsumer
	logger    *slog.Logger
}

// NewConsumerRegistry creates an empty registry.
func NewConsumerRegistry(logger *slog.Logger) *ConsumerRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsumerRegistry{
		consumers: make(map[string][]EventConsumer),
		logger:    logger,
	}
}

// Register subscribes consumer to each of its event types.
func (r *ConsumerRegistry) Register(consumer EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range consumer.EventTypes() {
		r.consumers[t] = append(r.consumers[t], consumer)
	}
}

// Consumers returns the consumers for routingKey, wildcard subscribers last.
func (r *ConsumerRegistry) Consumers(routingKey string) []EventConsumer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]EventConsumer(nil), r.consumers[routingKey]...)
	if routingKey != Wildcard {
		out = append(out, r.consumers[Wildcard]...)
	}
	return out
}

// EventTypes lists every subscribed routing key.
func (r *ConsumerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.consumers))
	for t := range r.consumers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Dispatch delivers event to every matching consumer. A failing consumer does
// not stop the others; all failures are joined into the returned error.
func (r *ConsumerRegistry) Dispatch(ctx context.Context, event *ConsumedEvent) error {
	var errs []error
	for _, c := range r.Consumers(event.RoutingKey) {
		if err := c.Handle(ctx, event); err != nil {
			r.logger.Error("consumer failed",
				"routing_key", event.RoutingKey,
				"event_id", event.EventID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
