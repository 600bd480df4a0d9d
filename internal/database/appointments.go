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

const appointmentColumns = `id, order_id, time_slot_id, client_name, client_email,
                 COALESCE(client_phone, ''), COALESCE(service, ''), COALESCE(notes, ''),
                 status, reminder_sent, capacity_released, created_at, updated_at`

// CreateAppointment persists a confirmed appointment. Contact fields are
// denormalized from the order at booking time.
func (db *DB) CreateAppointment(ctx context.Context, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	now := time.Now()

	query := `INSERT INTO appointments (
                id, order_id, time_slot_id, client_name, client_email,
                client_phone, service, notes, status, reminder_sent, capacity_released, created_at, updated_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		appt.ID,
		appt.OrderID,
		appt.TimeSlotID,
		appt.ClientName,
		appt.ClientEmail,
		appt.ClientPhone,
		appt.Service,
		appt.Notes,
		models.StatusConfirmed,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	appt.Status = models.StatusConfirmed
	appt.ReminderSent = false
	appt.CreatedAt = now
	appt.UpdatedAt = now
	return nil
}

// GetAppointment returns an appointment by id.
func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	appt, err := scanAppointment(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// GetAppointmentsByOrder returns all appointments referencing an order.
func (db *DB) GetAppointmentsByOrder(ctx context.Context, orderID string) ([]*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE order_id = ? ORDER BY created_at`
	rows, err := db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointments by order: %w", err)
	}
	defer rows.Close()

	var appts []*models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	return appts, rows.Err()
}

// CancelAppointment moves a confirmed appointment to cancelled. The
// transition is conditional on the current status, so only the first of
// any concurrent cancel calls reports transitioned=true; the capacity
// release must happen exactly once, on that call.
func (db *DB) CancelAppointment(ctx context.Context, id string) (transitioned bool, err error) {
	query := `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := db.ExecContext(ctx, query, models.StatusCancelled, time.Now(), id, models.StatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	if _, err := db.GetAppointment(ctx, id); err != nil {
		return false, err
	}
	// Already cancelled or completed; nothing to do.
	return false, nil
}

// ClaimCapacityRelease flips capacity_released for a cancelled appointment.
// Exactly one caller wins the flip, so the slot counter is decremented once
// per cancellation no matter how many cancel calls race or retry. The claim
// is separate from the status transition: if the decrement itself fails the
// claim is rolled back and a later retry can release.
func (db *DB) ClaimCapacityRelease(ctx context.Context, id string) (claimed bool, err error) {
	query := `UPDATE appointments SET capacity_released = 1, updated_at = ?
              WHERE id = ? AND status = ? AND capacity_released = 0`
	res, err := db.ExecContext(ctx, query, time.Now(), id, models.StatusCancelled)
	if err != nil {
		return false, fmt.Errorf("failed to claim capacity release: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to claim capacity release: %w", err)
	}
	if rows > 0 {
		return true, nil
	}

	if _, err := db.GetAppointment(ctx, id); err != nil {
		return false, err
	}
	// Already released, or the appointment is not cancelled.
	return false, nil
}

// UnclaimCapacityRelease re-arms the claim after a failed decrement.
func (db *DB) UnclaimCapacityRelease(ctx context.Context, id string) error {
	query := `UPDATE appointments SET capacity_released = 0, updated_at = ? WHERE id = ?`
	if _, err := db.ExecContext(ctx, query, time.Now(), id); err != nil {
		return fmt.Errorf("failed to unclaim capacity release: %w", err)
	}
	return nil
}

// CompleteAppointment marks a confirmed appointment completed.
func (db *DB) CompleteAppointment(ctx context.Context, id string) error {
	query := `UPDATE appointments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
	res, err := db.ExecContext(ctx, query, models.StatusCompleted, time.Now(), id, models.StatusConfirmed)
	if err != nil {
		return fmt.Errorf("failed to complete appointment: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows > 0 {
		return nil
	}

	if _, err := db.GetAppointment(ctx, id); err != nil {
		return err
	}
	return ErrAppointmentConflict
}

// GetAppointmentsDueForReminder returns confirmed, un-reminded appointments
// whose slot starts inside [from, to], joined with the slot's start moment.
func (db *DB) GetAppointmentsDueForReminder(ctx context.Context, from, to time.Time) ([]*models.UpcomingAppointment, error) {
	query := `SELECT a.id, a.order_id, a.time_slot_id, a.client_name, a.client_email,
                     COALESCE(a.client_phone, ''), COALESCE(a.service, ''), COALESCE(a.notes, ''),
                     a.status, a.reminder_sent, a.capacity_released, a.created_at, a.updated_at,
                     date(s.date), s.start_time
              FROM appointments a
              JOIN time_slots s ON s.id = a.time_slot_id
              WHERE a.status = ?
                AND a.reminder_sent = 0
                AND (date(s.date) || ' ' || s.start_time) >= ?
                AND (date(s.date) || ' ' || s.start_time) <= ?
              ORDER BY s.date, s.start_time`

	rows, err := db.QueryContext(ctx, query,
		models.StatusConfirmed,
		from.Format("2006-01-02 15:04"),
		to.Format("2006-01-02 15:04"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get appointments due for reminder: %w", err)
	}
	defer rows.Close()

	var due []*models.UpcomingAppointment
	for rows.Next() {
		var u models.UpcomingAppointment
		var dateStr string
		err := rows.Scan(
			&u.ID, &u.OrderID, &u.TimeSlotID, &u.ClientName, &u.ClientEmail,
			&u.ClientPhone, &u.Service, &u.Notes,
			&u.Status, &u.ReminderSent, &u.CapacityReleased, &u.CreatedAt, &u.UpdatedAt,
			&dateStr, &u.StartTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan upcoming appointment: %w", err)
		}

		u.SlotDate, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse slot date %s: %w", dateStr, err)
		}
		u.StartAt, err = time.ParseInLocation("2006-01-02 15:04", dateStr+" "+u.StartTime, from.Location())
		if err != nil {
			return nil, fmt.Errorf("failed to parse slot start %s %s: %w", dateStr, u.StartTime, err)
		}
		due = append(due, &u)
	}
	return due, rows.Err()
}

// MarkReminderSent flips reminder_sent to true. The flag is monotonic, so
// repeating the write after a crash between send and mark is harmless.
func (db *DB) MarkReminderSent(ctx context.Context, id string) error {
	query := `UPDATE appointments SET reminder_sent = 1, updated_at = ? WHERE id = ?`
	res, err := db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark reminder sent: %w", err)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var appt models.Appointment
	err := row.Scan(
		&appt.ID, &appt.OrderID, &appt.TimeSlotID, &appt.ClientName,
		&appt.ClientEmail, &appt.ClientPhone, &appt.Service, &appt.Notes,
		&appt.Status, &appt.ReminderSent, &appt.CapacityReleased,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}
