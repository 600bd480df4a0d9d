package database

import (
	"context"
	"testing"
	"time"

	"dataikos/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAppointment(t *testing.T, db *DB, slotID string) *models.Appointment {
	t.Helper()
	appt := &models.Appointment{
		OrderID:     "order-1",
		TimeSlotID:  slotID,
		ClientName:  "Anna",
		ClientEmail: "anna@example.com",
		Service:     "consultation",
	}
	require.NoError(t, db.CreateAppointment(context.Background(), appt))
	return appt
}

func TestCancelAppointment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := makeAppointment(t, db, slot.ID)

	transitioned, err := db.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, transitioned)

	// Second cancel finds a terminal state and reports no transition.
	transitioned, err = db.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)

	_, err = db.CancelAppointment(ctx, "no-such-appointment")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestClaimCapacityRelease(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := makeAppointment(t, db, slot.ID)

	// A confirmed appointment holds its unit; nothing to claim yet.
	claimed, err := db.ClaimCapacityRelease(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	transitioned, err := db.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.True(t, transitioned)

	claimed, err = db.ClaimCapacityRelease(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// The claim is one-shot until re-armed.
	claimed, err = db.ClaimCapacityRelease(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	require.NoError(t, db.UnclaimCapacityRelease(ctx, appt.ID))
	claimed, err = db.ClaimCapacityRelease(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	_, err = db.ClaimCapacityRelease(ctx, "no-such-appointment")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestClaimCapacityReleaseCompletedAppointment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := makeAppointment(t, db, slot.ID)
	require.NoError(t, db.CompleteAppointment(ctx, appt.ID))

	// Completed appointments keep their unit.
	claimed, err := db.ClaimCapacityRelease(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestCompleteAppointment(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := makeAppointment(t, db, slot.ID)

	require.NoError(t, db.CompleteAppointment(ctx, appt.ID))

	reloaded, err := db.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, reloaded.Status)

	// Completed is terminal; neither complete nor cancel moves it again.
	err = db.CompleteAppointment(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentConflict)

	transitioned, err := db.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.False(t, transitioned)
}

func TestGetAppointmentsDueForReminder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	now := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

	inWindow := &models.TimeSlot{
		Date:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime:   "15:00",
		EndTime:     "16:00",
		MaxCapacity: 5,
	}
	require.NoError(t, db.CreateSlot(ctx, inWindow))

	outsideWindow := &models.TimeSlot{
		Date:        time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		StartTime:   "15:00",
		EndTime:     "16:00",
		MaxCapacity: 5,
	}
	require.NoError(t, db.CreateSlot(ctx, outsideWindow))

	due := makeAppointment(t, db, inWindow.ID)
	makeAppointment(t, db, outsideWindow.ID)

	cancelled := makeAppointment(t, db, inWindow.ID)
	transitioned, err := db.CancelAppointment(ctx, cancelled.ID)
	require.NoError(t, err)
	require.True(t, transitioned)

	upcoming, err := db.GetAppointmentsDueForReminder(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, due.ID, upcoming[0].ID)
	assert.Equal(t, "15:00", upcoming[0].StartTime)
	assert.Equal(t, time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC), upcoming[0].StartAt)

	// Once reminded, the appointment leaves the window query for good.
	require.NoError(t, db.MarkReminderSent(ctx, due.ID))

	upcoming, err = db.GetAppointmentsDueForReminder(ctx, now, now.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, upcoming)
}

func TestMarkReminderSent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := makeAppointment(t, db, slot.ID)

	require.NoError(t, db.MarkReminderSent(ctx, appt.ID))
	// Monotonic flag, repeating the write is harmless.
	require.NoError(t, db.MarkReminderSent(ctx, appt.ID))

	reloaded, err := db.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.ReminderSent)

	err = db.MarkReminderSent(ctx, "no-such-appointment")
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
