package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dataikos/internal/models"

	"github.com/google/uuid"
)

const slotColumns = `id, date(date), start_time, end_time, max_capacity, current_bookings, is_active, created_at, updated_at`

// CreateSlot inserts a single slot. The (date, start_time) pair is unique;
// inserting a duplicate returns the already existing slot untouched.
func (db *DB) CreateSlot(ctx context.Context, slot *models.TimeSlot) error {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	now := time.Now()

	query := `INSERT INTO time_slots (id, date, start_time, end_time, max_capacity, current_bookings, is_active, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, 0, 1, ?, ?)
              ON CONFLICT(date, start_time) DO NOTHING`
	res, err := db.ExecContext(ctx, query,
		slot.ID,
		slot.Date.Format("2006-01-02"),
		slot.StartTime,
		slot.EndTime,
		slot.MaxCapacity,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		// Already generated for this date/time; keep the stored identity.
		existing, err := db.getSlotByDateTime(ctx, slot.Date, slot.StartTime)
		if err != nil {
			return err
		}
		*slot = *existing
		return nil
	}

	slot.CurrentBookings = 0
	slot.IsActive = true
	slot.CreatedAt = now
	slot.UpdatedAt = now
	return nil
}

// GenerateSlots creates slots of the given duration for every day in
// [startDate, endDate] between openHour and closeHour. Re-running for the
// same range is a no-op for slots that already exist.
func (db *DB) GenerateSlots(ctx context.Context, startDate, endDate time.Time, durationMinutes, openHour, closeHour int, capacity int64) ([]*models.TimeSlot, error) {
	if durationMinutes <= 0 {
		durationMinutes = models.DefaultSlotDurationMinutes
	}
	if capacity <= 0 {
		capacity = models.DefaultSlotCapacity
	}

	var slots []*models.TimeSlot
	for day := startDate; !day.After(endDate); day = day.AddDate(0, 0, 1) {
		dayStart := time.Date(day.Year(), day.Month(), day.Day(), openHour, 0, 0, 0, day.Location())
		dayEnd := time.Date(day.Year(), day.Month(), day.Day(), closeHour, 0, 0, 0, day.Location())

		for t := dayStart; !t.Add(time.Duration(durationMinutes) * time.Minute).After(dayEnd); t = t.Add(time.Duration(durationMinutes) * time.Minute) {
			slot := &models.TimeSlot{
				Date:        time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
				StartTime:   t.Format("15:04"),
				EndTime:     t.Add(time.Duration(durationMinutes) * time.Minute).Format("15:04"),
				MaxCapacity: capacity,
			}
			if err := db.CreateSlot(ctx, slot); err != nil {
				return nil, fmt.Errorf("generate slots for %s: %w", day.Format("2006-01-02"), err)
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// GetSlot returns a slot by id.
func (db *DB) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE id = ?`
	slot, err := scanSlot(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return slot, nil
}

func (db *DB) getSlotByDateTime(ctx context.Context, date time.Time, startTime string) (*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots WHERE date(date) = ? AND start_time = ?`
	slot, err := scanSlot(db.QueryRowContext(ctx, query, date.Format("2006-01-02"), startTime))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot by date/time: %w", err)
	}
	return slot, nil
}

// GetAvailableSlots returns active slots with free capacity in the range,
// ordered by date then start time.
func (db *DB) GetAvailableSlots(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots
              WHERE date(date) >= ? AND date(date) <= ?
                AND is_active = 1
                AND current_bookings < max_capacity
              ORDER BY date, start_time`

	rows, err := db.QueryContext(ctx, query, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to get available slots: %w", err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// GetSlotsByDateRange returns every slot in the range regardless of
// occupancy, ordered by date then start time.
func (db *DB) GetSlotsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	query := `SELECT ` + slotColumns + ` FROM time_slots
              WHERE date(date) >= ? AND date(date) <= ?
              ORDER BY date, start_time`

	rows, err := db.QueryContext(ctx, query, startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to get slots by date range: %w", err)
	}
	defer rows.Close()

	var slots []*models.TimeSlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// ReserveSlot increments the booking counter iff capacity remains. The
// check and the increment are one statement, so two concurrent callers can
// never both pass the check on the last free unit.
func (db *DB) ReserveSlot(ctx context.Context, id string) error {
	query := `UPDATE time_slots
              SET current_bookings = current_bookings + 1, updated_at = ?
              WHERE id = ? AND is_active = 1 AND current_bookings < max_capacity`
	res, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to reserve slot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to reserve slot: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing updated: tell the caller whether the slot is missing,
	// closed, or full. A deactivated slot is not bookable, same as a
	// missing one.
	slot, err := db.GetSlot(ctx, id)
	if err != nil {
		return err
	}
	if !slot.IsActive {
		return ErrSlotNotFound
	}
	return ErrSlotFull
}

// SetSlotActive opens or closes a slot for booking. Closing does not touch
// existing appointments; it only stops new reservations.
func (db *DB) SetSlotActive(ctx context.Context, id string, active bool) error {
	query := `UPDATE time_slots SET is_active = ?, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, active, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to set slot active: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// ReleaseSlot decrements the booking counter, floored at zero. Releasing a
// slot whose counter is already zero is a no-op so that compensation paths
// may retry safely.
func (db *DB) ReleaseSlot(ctx context.Context, id string) error {
	query := `UPDATE time_slots
              SET current_bookings = current_bookings - 1, updated_at = ?
              WHERE id = ? AND current_bookings > 0`
	res, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to release slot: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := db.GetSlot(ctx, id); err != nil {
		return err
	}
	return nil
}

// DeleteSlot removes a slot unless non-cancelled appointments still
// reference it.
func (db *DB) DeleteSlot(ctx context.Context, id string) error {
	query := `DELETE FROM time_slots
              WHERE id = ?
                AND NOT EXISTS (
                    SELECT 1 FROM appointments
                    WHERE time_slot_id = ? AND status != ?
                )`
	res, err := db.ExecContext(ctx, query, id, id, models.StatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}
	if rows > 0 {
		return nil
	}

	if _, err := db.GetSlot(ctx, id); err != nil {
		return err
	}
	return ErrSlotInUse
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSlot(row rowScanner) (*models.TimeSlot, error) {
	var slot models.TimeSlot
	var dateStr string
	err := row.Scan(
		&slot.ID, &dateStr, &slot.StartTime, &slot.EndTime,
		&slot.MaxCapacity, &slot.CurrentBookings, &slot.IsActive,
		&slot.CreatedAt, &slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	slot.Date, err = time.Parse("2006-01-02", dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse slot date %s: %w", dateStr, err)
	}
	return &slot, nil
}
