package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/escrowly/internal/shared/domain"
)

type fundedEvent struct {
	domain.BaseEvent
	Amount int64 `json:"amount"`
}

func TestNewBaseEvent(t *testing.T) {
	aggID := uuid.New()
	before := time.Now().UTC()

	ev := domain.NewBaseEvent(aggID, "Project", "escrow.funded")

	assert.NotEqual(t, uuid.Nil, ev.EventID())
	assert.Equal(t, aggID, ev.AggregateID())
	assert.Equal(t, "Project", ev.AggregateType())
	assert.Equal(t, "escrow.funded", ev.RoutingKey())
	assert.False(t, ev.OccurredAt().Before(before))
	assert.Equal(t, domain.EventMetadata{}, ev.Metadata())
}

func TestBaseEvent_EnvelopeStaysOutOfPayload(t *testing.T) {
	ev := fundedEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "Project", "escrow.funded"), Amount: 3000}

	data, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":3000}`, string(data))
}

func TestBaseEvent_SetMetadata(t *testing.T) {
	ev := &fundedEvent{BaseEvent: domain.NewBaseEvent(uuid.New(), "Project", "escrow.funded")}
	md := domain.EventMetadata{CorrelationID: uuid.New(), CausationID: uuid.New(), UserID: uuid.New()}

	ev.SetMetadata(md)

	var de domain.DomainEvent = ev
	assert.Equal(t, md, de.Metadata())
}
