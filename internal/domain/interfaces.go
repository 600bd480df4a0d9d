package domain

import (
	"context"
	"time"

	"dataikos/internal/models"
)

// SlotStore is the durable record of time slots. Reserve/Release must be
// single-statement conditional updates in the underlying store; callers
// never read-modify-write the booking counter.
type SlotStore interface {
	CreateSlot(ctx context.Context, slot *models.TimeSlot) error
	GenerateSlots(ctx context.Context, startDate, endDate time.Time, durationMinutes, openHour, closeHour int, capacity int64) ([]*models.TimeSlot, error)
	GetSlot(ctx context.Context, id string) (*models.TimeSlot, error)
	GetAvailableSlots(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error)
	GetSlotsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error)
	ReserveSlot(ctx context.Context, id string) error
	ReleaseSlot(ctx context.Context, id string) error
	SetSlotActive(ctx context.Context, id string, active bool) error
	DeleteSlot(ctx context.Context, id string) error
}

type OrderStore interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, status string, limit, offset int) ([]*models.Order, error)
	UpdateOrderStatus(ctx context.Context, id, status, adminNotes string) error
	AttachAppointment(ctx context.Context, orderID, appointmentID string) error
	DetachAppointment(ctx context.Context, orderID string) error
	DeleteOrder(ctx context.Context, id string) error
}

type AppointmentStore interface {
	CreateAppointment(ctx context.Context, appt *models.Appointment) error
	GetAppointment(ctx context.Context, id string) (*models.Appointment, error)
	GetAppointmentsByOrder(ctx context.Context, orderID string) ([]*models.Appointment, error)
	CancelAppointment(ctx context.Context, id string) (transitioned bool, err error)
	ClaimCapacityRelease(ctx context.Context, id string) (claimed bool, err error)
	UnclaimCapacityRelease(ctx context.Context, id string) error
	CompleteAppointment(ctx context.Context, id string) error
	GetAppointmentsDueForReminder(ctx context.Context, from, to time.Time) ([]*models.UpcomingAppointment, error)
	MarkReminderSent(ctx context.Context, id string) error
}

// Store is the full record store consumed by the booking service.
type Store interface {
	SlotStore
	OrderStore
	AppointmentStore
	GetDashboardStats(ctx context.Context, now time.Time) (*models.DashboardStats, error)
}

// Notifier delivers a notification to a recipient. Rendering and transport
// live outside the core; the core only checks success or failure.
type Notifier interface {
	Send(ctx context.Context, n models.Notification) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// ReminderStore is the slice of the store the reminder sweep needs.
type ReminderStore interface {
	GetAppointmentsDueForReminder(ctx context.Context, from, to time.Time) ([]*models.UpcomingAppointment, error)
	MarkReminderSent(ctx context.Context, id string) error
}
