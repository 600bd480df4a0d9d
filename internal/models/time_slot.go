package models

import "time"

// TimeSlot is a bookable calendar window with finite capacity.
// CurrentBookings is mutated only through the capacity manager's
// reserve/release primitives and always satisfies
// 0 <= CurrentBookings <= MaxCapacity.
type TimeSlot struct {
	ID              string    `json:"id"`
	Date            time.Time `json:"date"`
	StartTime       string    `json:"start_time"` // HH:MM
	EndTime         string    `json:"end_time"`   // HH:MM
	MaxCapacity     int64     `json:"max_capacity"`
	CurrentBookings int64     `json:"current_bookings"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StartAt combines Date and StartTime into a point in time in loc.
func (s *TimeSlot) StartAt(loc *time.Location) time.Time {
	t, err := time.ParseInLocation("15:04", s.StartTime, loc)
	if err != nil {
		return s.Date
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, loc)
}

// Available reports whether the slot can still take a booking.
func (s *TimeSlot) Available() bool {
	return s.IsActive && s.CurrentBookings < s.MaxCapacity
}
