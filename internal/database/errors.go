package database

import "errors"

var (
	// ErrSlotNotFound slot id does not exist or the slot was deactivated.
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrSlotFull capacity exhausted; the caller should pick another slot.
	ErrSlotFull = errors.New("time slot fully booked")

	// ErrSlotInUse slot still referenced by non-cancelled appointments.
	ErrSlotInUse = errors.New("time slot has active appointments")

	// ErrOrderNotFound order id does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrAppointmentNotFound appointment id does not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrAppointmentConflict appointment is already booked or already in a
	// terminal state for the attempted transition.
	ErrAppointmentConflict = errors.New("appointment conflict")

	// ErrPastDate requested date is in the past.
	ErrPastDate = errors.New("date is in the past")

	// ErrDateTooFar requested date is beyond the booking horizon.
	ErrDateTooFar = errors.New("date is too far in the future")
)
