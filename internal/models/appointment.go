package models

import "time"

// Appointment ties one order to one time slot. Client contact fields are
// captured at booking time and stay fixed when the order is edited later.
// The slot reference is immutable; rescheduling is cancel + rebook.
type Appointment struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	TimeSlotID  string `json:"time_slot_id"`
	ClientName  string `json:"client_name"`
	ClientEmail string `json:"client_email"`
	ClientPhone string `json:"client_phone,omitempty"`
	Service     string `json:"service"`
	Notes       string `json:"notes,omitempty"`
	Status      string `json:"status"` // confirmed, cancelled, completed
	// ReminderSent is monotonic; CapacityReleased moves 0 -> 1 exactly once
	// per cancellation (with a roll-back only when the release itself fails).
	ReminderSent     bool      `json:"reminder_sent"`
	CapacityReleased bool      `json:"capacity_released"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UpcomingAppointment is an appointment joined with its slot's start
// moment, as returned by the reminder window query.
type UpcomingAppointment struct {
	Appointment
	SlotDate  time.Time `json:"slot_date"`
	StartTime string    `json:"start_time"`
	StartAt   time.Time `json:"start_at"`
}

// Notification is what the core hands to the external notifier. Rendering
// and transport happen outside the core.
type Notification struct {
	Template  string            `json:"template"`
	Recipient string            `json:"recipient"`
	Variables map[string]string `json:"variables,omitempty"`
}

// DashboardStats are aggregate counts for the admin surface.
type DashboardStats struct {
	TotalOrders          int64 `json:"total_orders"`
	PendingOrders        int64 `json:"pending_orders"`
	ConfirmedOrders      int64 `json:"confirmed_orders"`
	CompletedOrders      int64 `json:"completed_orders"`
	CancelledOrders      int64 `json:"cancelled_orders"`
	UpcomingAppointments int64 `json:"upcoming_appointments"`
}
