package capacity

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"dataikos/internal/domain"
	"dataikos/internal/metrics"
	"dataikos/internal/models"

	"github.com/rs/zerolog"
)

// Manager enforces the slot capacity invariant. It holds no lock of its
// own: the check-and-increment is a single conditional statement in the
// store, which is what keeps the invariant across multiple server
// instances.
type Manager struct {
	store  domain.SlotStore
	logger *zerolog.Logger
}

func NewManager(store domain.SlotStore, logger *zerolog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

// Reservation is one held unit of a slot's capacity. Release is idempotent:
// however many times a compensation path retries it, the counter moves at
// most once.
type Reservation struct {
	slotID   string
	store    domain.SlotStore
	released atomic.Bool
}

// SlotID returns the slot this reservation holds a unit of.
func (r *Reservation) SlotID() string {
	return r.slotID
}

// Release gives the held unit back. Safe to call multiple times; a failed
// release may be retried.
func (r *Reservation) Release(ctx context.Context) error {
	if r == nil {
		return nil
	}
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := r.store.ReleaseSlot(ctx, r.slotID); err != nil {
		// Allow the compensation path to retry.
		r.released.Store(false)
		return fmt.Errorf("release reservation: %w", err)
	}
	metrics.IncSlotReleased()
	return nil
}

// Reserve atomically claims one unit of the slot's capacity and returns
// the capability for it. Fails with database.ErrSlotFull or
// database.ErrSlotNotFound.
func (m *Manager) Reserve(ctx context.Context, slotID string) (*Reservation, error) {
	if err := m.store.ReserveSlot(ctx, slotID); err != nil {
		metrics.IncReservation("rejected")
		return nil, err
	}

	metrics.IncReservation("reserved")
	m.logger.Debug().Str("slot_id", slotID).Msg("capacity reserved")
	return &Reservation{slotID: slotID, store: m.store}, nil
}

// Release decrements a slot's counter directly, floored at zero in the
// store. Used by the cancellation path, which releases by slot rather than
// through a live Reservation.
func (m *Manager) Release(ctx context.Context, slotID string) error {
	if err := m.store.ReleaseSlot(ctx, slotID); err != nil {
		return err
	}
	metrics.IncSlotReleased()
	m.logger.Debug().Str("slot_id", slotID).Msg("capacity released")
	return nil
}

// Available returns slots with free capacity in [startDate, endDate],
// ordered by date then start time.
func (m *Manager) Available(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	return m.store.GetAvailableSlots(ctx, startDate, endDate)
}
