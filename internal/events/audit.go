package events

import (
	"encoding/json"

	"dataikos/internal/metrics"

	"github.com/rs/zerolog"
)

// BookingEventTypes lists every event the booking service publishes.
var BookingEventTypes = []string{
	EventOrderCreated,
	EventAppointmentBooked,
	EventAppointmentCancelled,
	EventAppointmentCompleted,
	EventReminderSent,
}

// SubscribeAudit attaches the audit consumer to every booking event type:
// each event lands in the structured log and in the per-type event counter.
func SubscribeAudit(bus *EventBus, logger *zerolog.Logger) {
	if bus == nil {
		return
	}

	auditLogger := logger.With().Str("component", "event_audit").Logger()

	handler := func(ev *Event) error {
		var payload BookingEventPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			auditLogger.Error().Err(err).Str("event", ev.Type).Msg("event bus: decode payload")
			return nil
		}

		metrics.IncEvent(ev.Type)
		auditLogger.Info().
			Str("event", ev.Type).
			Str("order_id", payload.OrderID).
			Str("appointment_id", payload.AppointmentID).
			Str("time_slot_id", payload.TimeSlotID).
			Str("status", payload.Status).
			Msg("booking event")
		return nil
	}

	for _, eventType := range BookingEventTypes {
		bus.Subscribe(eventType, handler)
	}
}
