package events

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribe(t *testing.T) {
	bus := NewEventBus()

	var received []*Event
	bus.Subscribe(EventAppointmentBooked, func(event *Event) error {
		received = append(received, event)
		return nil
	})

	payload := BookingEventPayload{
		OrderID:       "order-1",
		AppointmentID: "appt-1",
		TimeSlotID:    "slot-1",
		Status:        "confirmed",
	}
	require.NoError(t, bus.PublishJSON(EventAppointmentBooked, payload))

	require.Len(t, received, 1)
	assert.Equal(t, EventAppointmentBooked, received[0].Type)
	assert.False(t, received[0].CreatedAt.IsZero())

	var decoded BookingEventPayload
	require.NoError(t, json.Unmarshal(received[0].Payload, &decoded))
	assert.Equal(t, payload, decoded)
}

func TestPublishUnrelatedType(t *testing.T) {
	bus := NewEventBus()

	called := false
	bus.Subscribe(EventOrderCreated, func(event *Event) error {
		called = true
		return nil
	})

	require.NoError(t, bus.PublishJSON(EventReminderSent, BookingEventPayload{OrderID: "order-1"}))
	assert.False(t, called)
}

func TestNilBusPublish(t *testing.T) {
	var bus *EventBus
	assert.NoError(t, bus.PublishJSON(EventOrderCreated, BookingEventPayload{}))
}

func TestSubscribeAuditConsumesAllEventTypes(t *testing.T) {
	bus := NewEventBus()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	SubscribeAudit(bus, &logger)

	for _, eventType := range BookingEventTypes {
		require.NoError(t, bus.PublishJSON(eventType, BookingEventPayload{
			OrderID: "order-1",
			Status:  "confirmed",
		}))
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, len(BookingEventTypes))
	for i, eventType := range BookingEventTypes {
		assert.Contains(t, lines[i], eventType)
		assert.Contains(t, lines[i], "order-1")
	}
}

func TestMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()

	count := 0
	for i := 0; i < 3; i++ {
		bus.Subscribe(EventAppointmentCancelled, func(event *Event) error {
			count++
			return nil
		})
	}

	require.NoError(t, bus.PublishJSON(EventAppointmentCancelled, BookingEventPayload{OrderID: "order-1"}))
	assert.Equal(t, 3, count)
}
