package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelopeUsesOccurredAtForID(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	env, err := NewEnvelope(EventKitchenTicketCreated, at, TicketCreated{TicketID: "1", Priority: 2})
	require.NoError(t, err)

	id, err := ulid.Parse(env.ID)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(at), id.Time())
	assert.Equal(t, EventKitchenTicketCreated, env.Type)

	var payload TicketCreated
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, 2, payload.Priority)
}

func TestRecorderKeepsOrder(t *testing.T) {
	var r Recorder
	now := time.Now()
	first, _ := NewEnvelope(EventKitchenTicketCreated, now, struct{}{})
	second, _ := NewEnvelope(EventKitchenTicketStatusChanged, now, struct{}{})

	require.NoError(t, r.Publish(context.Background(), KitchenTicketsTopic, first))
	require.NoError(t, r.Publish(context.Background(), KitchenTicketsTopic, second))

	assert.Equal(t, []string{EventKitchenTicketCreated, EventKitchenTicketStatusChanged}, r.Types())
}
