package capacity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dataikos/internal/database"
	"dataikos/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSlotStore struct {
	mu       sync.Mutex
	reserves int
	releases int

	reserveErr error
	releaseErr error
}

func (s *fakeSlotStore) ReserveSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.reserveErr != nil {
		return s.reserveErr
	}
	s.reserves++
	return nil
}

func (s *fakeSlotStore) ReleaseSlot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.releaseErr != nil {
		return s.releaseErr
	}
	s.releases++
	return nil
}

func (s *fakeSlotStore) CreateSlot(ctx context.Context, slot *models.TimeSlot) error { return nil }
func (s *fakeSlotStore) GenerateSlots(ctx context.Context, startDate, endDate time.Time, durationMinutes, openHour, closeHour int, capacity int64) ([]*models.TimeSlot, error) {
	return nil, nil
}
func (s *fakeSlotStore) GetSlot(ctx context.Context, id string) (*models.TimeSlot, error) {
	return nil, database.ErrSlotNotFound
}
func (s *fakeSlotStore) GetAvailableSlots(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	return nil, nil
}
func (s *fakeSlotStore) GetSlotsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	return nil, nil
}
func (s *fakeSlotStore) SetSlotActive(ctx context.Context, id string, active bool) error {
	return nil
}
func (s *fakeSlotStore) DeleteSlot(ctx context.Context, id string) error { return nil }

func newTestManager(store *fakeSlotStore) *Manager {
	logger := zerolog.Nop()
	return NewManager(store, &logger)
}

func TestReserveReturnsReservation(t *testing.T) {
	store := &fakeSlotStore{}
	manager := newTestManager(store)

	res, err := manager.Reserve(context.Background(), "slot-1")
	require.NoError(t, err)
	assert.Equal(t, "slot-1", res.SlotID())
	assert.Equal(t, 1, store.reserves)
}

func TestReserveFull(t *testing.T) {
	store := &fakeSlotStore{reserveErr: database.ErrSlotFull}
	manager := newTestManager(store)

	_, err := manager.Reserve(context.Background(), "slot-1")
	assert.ErrorIs(t, err, database.ErrSlotFull)
}

func TestReleaseIdempotent(t *testing.T) {
	store := &fakeSlotStore{}
	manager := newTestManager(store)

	res, err := manager.Reserve(context.Background(), "slot-1")
	require.NoError(t, err)

	// However often the compensation path runs, the counter moves once.
	require.NoError(t, res.Release(context.Background()))
	require.NoError(t, res.Release(context.Background()))
	require.NoError(t, res.Release(context.Background()))

	assert.Equal(t, 1, store.releases)
}

func TestReleaseConcurrentSingleDecrement(t *testing.T) {
	store := &fakeSlotStore{}
	manager := newTestManager(store)

	res, err := manager.Reserve(context.Background(), "slot-1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, res.Release(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, store.releases)
}

func TestReleaseRetriesAfterStoreError(t *testing.T) {
	store := &fakeSlotStore{}
	manager := newTestManager(store)

	res, err := manager.Reserve(context.Background(), "slot-1")
	require.NoError(t, err)

	store.releaseErr = errors.New("store unavailable")
	err = res.Release(context.Background())
	require.Error(t, err)

	// A failed release re-arms the reservation so a retry can land.
	store.releaseErr = nil
	require.NoError(t, res.Release(context.Background()))
	assert.Equal(t, 1, store.releases)
}

func TestNilReservationRelease(t *testing.T) {
	var res *Reservation
	assert.NoError(t, res.Release(context.Background()))
}
