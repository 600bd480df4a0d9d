package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "orders_created_total",
			Help:      "Orders persisted by the booking service.",
		},
	)

	reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "slot_reservations_total",
			Help:      "Slot reservation attempts by outcome.",
		},
		[]string{"outcome"},
	)

	slotReleases = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "slot_releases_total",
			Help:      "Capacity units released back to slots.",
		},
	)

	remindersSent = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "reminders_sent_total",
			Help:      "Appointment reminders successfully dispatched.",
		},
	)

	reminderFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "reminder_failures_total",
			Help:      "Reminder dispatch failures left for the next sweep.",
		},
	)

	sweepsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "reminder_sweeps_skipped_total",
			Help:      "Reminder sweeps skipped because a previous run was still active.",
		},
	)

	bookingEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dataikos",
			Name:      "booking_events_total",
			Help:      "Booking lifecycle events observed on the bus.",
		},
		[]string{"type"},
	)

	sweepDuration = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dataikos",
			Name:      "reminder_sweep_duration_seconds",
			Help:      "Duration of the last reminder sweep.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			ordersCreated,
			reservations,
			slotReleases,
			remindersSent,
			reminderFailures,
			sweepsSkipped,
			bookingEvents,
			sweepDuration,
		)
	})
}

func IncOrderCreated()              { ordersCreated.Inc() }
func IncReservation(outcome string) { reservations.WithLabelValues(outcome).Inc() }
func IncSlotReleased()              { slotReleases.Inc() }
func IncReminderSent()              { remindersSent.Inc() }
func IncReminderFailed()            { reminderFailures.Inc() }
func IncSweepSkipped()              { sweepsSkipped.Inc() }
func IncEvent(eventType string)     { bookingEvents.WithLabelValues(eventType).Inc() }

func ObserveSweepDuration(d time.Duration) { sweepDuration.Set(d.Seconds()) }
