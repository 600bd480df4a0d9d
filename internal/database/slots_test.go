package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dataikos/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func makeSlot(t *testing.T, db *DB, capacity int64) *models.TimeSlot {
	t.Helper()
	slot := &models.TimeSlot{
		Date:        time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		StartTime:   "10:00",
		EndTime:     "11:00",
		MaxCapacity: capacity,
	}
	require.NoError(t, db.CreateSlot(context.Background(), slot))
	return slot
}

func TestCreateSlotDuplicate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := makeSlot(t, db, 5)

	duplicate := &models.TimeSlot{
		Date:        first.Date,
		StartTime:   first.StartTime,
		EndTime:     first.EndTime,
		MaxCapacity: 3,
	}
	require.NoError(t, db.CreateSlot(ctx, duplicate))

	// The existing slot wins; the duplicate insert changed nothing.
	assert.Equal(t, first.ID, duplicate.ID)
	assert.Equal(t, int64(5), duplicate.MaxCapacity)
}

func TestGenerateSlotsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 9, 8, 0, 0, 0, 0, time.UTC)

	slots, err := db.GenerateSlots(ctx, start, end, 60, 9, 18, 5)
	require.NoError(t, err)
	// 9 hourly slots per day, 2 days
	assert.Len(t, slots, 18)

	// Book one unit before regenerating.
	require.NoError(t, db.ReserveSlot(ctx, slots[0].ID))

	again, err := db.GenerateSlots(ctx, start, end, 60, 9, 18, 5)
	require.NoError(t, err)
	assert.Len(t, again, 18)

	// Same identities, bookings untouched.
	assert.Equal(t, slots[0].ID, again[0].ID)
	reloaded, err := db.GetSlot(ctx, slots[0].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), reloaded.CurrentBookings)
}

func TestReserveSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)

	require.NoError(t, db.ReserveSlot(ctx, slot.ID))
	require.NoError(t, db.ReserveSlot(ctx, slot.ID))

	err := db.ReserveSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrSlotFull)

	err = db.ReserveSlot(ctx, "no-such-slot")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	reloaded, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), reloaded.CurrentBookings)
}

func TestReserveDeactivatedSlot(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 3)
	require.NoError(t, db.SetSlotActive(ctx, slot.ID, false))

	// A closed slot reads as not bookable, not as full.
	err := db.ReserveSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	available, err := db.GetAvailableSlots(ctx, slot.Date, slot.Date)
	require.NoError(t, err)
	assert.Empty(t, available)

	require.NoError(t, db.SetSlotActive(ctx, slot.ID, true))
	require.NoError(t, db.ReserveSlot(ctx, slot.ID))

	err = db.SetSlotActive(ctx, "no-such-slot", false)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestReleaseSlotFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 3)
	require.NoError(t, db.ReserveSlot(ctx, slot.ID))

	require.NoError(t, db.ReleaseSlot(ctx, slot.ID))
	// Counter is already zero; further releases are no-ops.
	require.NoError(t, db.ReleaseSlot(ctx, slot.ID))
	require.NoError(t, db.ReleaseSlot(ctx, slot.ID))

	reloaded, err := db.GetSlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reloaded.CurrentBookings)

	err = db.ReleaseSlot(ctx, "no-such-slot")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestGetAvailableSlots(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	full := makeSlot(t, db, 1)
	require.NoError(t, db.ReserveSlot(ctx, full.ID))

	free := &models.TimeSlot{
		Date:        full.Date,
		StartTime:   "12:00",
		EndTime:     "13:00",
		MaxCapacity: 2,
	}
	require.NoError(t, db.CreateSlot(ctx, free))

	available, err := db.GetAvailableSlots(ctx, full.Date, full.Date)
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, free.ID, available[0].ID)

	all, err := db.GetSlotsByDateRange(ctx, full.Date, full.Date)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeleteSlotGuard(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	slot := makeSlot(t, db, 2)
	appt := &models.Appointment{
		OrderID:     "order-1",
		TimeSlotID:  slot.ID,
		ClientName:  "Anna",
		ClientEmail: "anna@example.com",
	}
	require.NoError(t, db.CreateAppointment(ctx, appt))

	// A confirmed appointment still references the slot.
	err := db.DeleteSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrSlotInUse)

	transitioned, err := db.CancelAppointment(ctx, appt.ID)
	require.NoError(t, err)
	require.True(t, transitioned)

	// Only cancelled appointments remain; deletion is allowed now.
	require.NoError(t, db.DeleteSlot(ctx, slot.ID))

	_, err = db.GetSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	err = db.DeleteSlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
