package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dataikos/internal/capacity"
	"dataikos/internal/database"
	"dataikos/internal/domain"
	"dataikos/internal/events"
	"dataikos/internal/metrics"
	"dataikos/internal/models"

	"github.com/rs/zerolog"
)

// ErrBookingUnavailable wraps a reservation failure on the order-creation
// path. The order itself is already persisted when this is returned; only
// the appointment could not be confirmed.
var ErrBookingUnavailable = errors.New("booking unavailable")

// ErrInvalidOrder order data failed validation.
var ErrInvalidOrder = errors.New("invalid order")

// ErrInvalidStatus unknown order status.
var ErrInvalidStatus = errors.New("invalid order status")

// BookingService orchestrates order intake with optional slot booking.
// The slot counter and the appointment record are not covered by one
// transaction, so the forward steps reserve -> persist appointment are
// paired with an explicit release compensation executed on failure.
type BookingService struct {
	store          domain.Store
	capacity       *capacity.Manager
	notifier       domain.Notifier
	eventBus       domain.EventPublisher
	maxAdvanceDays int
	openHour       int
	closeHour      int
	slotDuration   int
	slotCapacity   int64
	logger         *zerolog.Logger
}

type Options struct {
	MaxAdvanceDays      int
	OpenHour            int
	CloseHour           int
	SlotDurationMinutes int
	SlotCapacity        int64
}

func NewBookingService(store domain.Store, cap *capacity.Manager, notifier domain.Notifier, eventBus domain.EventPublisher, opts Options, logger *zerolog.Logger) *BookingService {
	if opts.MaxAdvanceDays <= 0 {
		opts.MaxAdvanceDays = 365
	}
	if opts.OpenHour <= 0 {
		opts.OpenHour = models.DefaultOpenHour
	}
	if opts.CloseHour <= 0 {
		opts.CloseHour = models.DefaultCloseHour
	}
	if opts.SlotDurationMinutes <= 0 {
		opts.SlotDurationMinutes = models.DefaultSlotDurationMinutes
	}
	if opts.SlotCapacity <= 0 {
		opts.SlotCapacity = models.DefaultSlotCapacity
	}
	return &BookingService{
		store:          store,
		capacity:       cap,
		notifier:       notifier,
		eventBus:       eventBus,
		maxAdvanceDays: opts.MaxAdvanceDays,
		openHour:       opts.OpenHour,
		closeHour:      opts.CloseHour,
		slotDuration:   opts.SlotDurationMinutes,
		slotCapacity:   opts.SlotCapacity,
		logger:         logger,
	}
}

func (s *BookingService) ValidateBookingDate(date time.Time) error {
	if date.Before(time.Now().AddDate(0, 0, -1)) {
		return database.ErrPastDate
	}

	maxDate := time.Now().AddDate(0, 0, s.maxAdvanceDays)
	if date.After(maxDate) {
		return database.ErrDateTooFar
	}

	return nil
}

// CreateOrder persists the order and, when slotID is given, books an
// appointment against it. The order survives a reservation failure: the
// caller gets ErrBookingUnavailable and the admin can rebook later.
// A nil appointment with a nil error means no slot was requested.
func (s *BookingService) CreateOrder(ctx context.Context, order *models.Order, slotID string) (*models.Appointment, error) {
	if order.Service == "" || order.ClientName == "" || order.ClientEmail == "" {
		return nil, fmt.Errorf("%w: service, client name and client email are required", ErrInvalidOrder)
	}

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	metrics.IncOrderCreated()
	s.publishEvent(events.EventOrderCreated, order, nil)

	if slotID == "" {
		return nil, nil
	}

	reservation, err := s.capacity.Reserve(ctx, slotID)
	if err != nil {
		if errors.Is(err, database.ErrSlotFull) || errors.Is(err, database.ErrSlotNotFound) {
			s.logger.Warn().Err(err).Str("order_id", order.ID).Str("slot_id", slotID).
				Msg("slot confirmation failed, order kept pending")
			return nil, fmt.Errorf("%w: %w", ErrBookingUnavailable, err)
		}
		return nil, err
	}

	appt, err := s.bookAppointment(ctx, order, slotID)
	if err != nil {
		// The reservation was taken but no appointment will reference it.
		// Release on a detached context: a request timeout must not skip
		// the compensation and leak a capacity unit.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := reservation.Release(releaseCtx); relErr != nil {
			s.logger.Error().Err(relErr).Str("slot_id", slotID).
				Msg("compensating release failed, slot counter leaked")
		}
		return nil, err
	}

	s.sendConfirmation(ctx, order, appt)
	s.publishEvent(events.EventAppointmentBooked, order, appt)
	return appt, nil
}

func (s *BookingService) bookAppointment(ctx context.Context, order *models.Order, slotID string) (*models.Appointment, error) {
	appt := &models.Appointment{
		OrderID:     order.ID,
		TimeSlotID:  slotID,
		ClientName:  order.ClientName,
		ClientEmail: order.ClientEmail,
		ClientPhone: order.ClientPhone,
		Service:     order.Service,
		Notes:       order.ClientDescription,
	}
	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}

	if err := s.store.AttachAppointment(ctx, order.ID, appt.ID); err != nil {
		return nil, err
	}

	order.AppointmentID = appt.ID
	order.Status = models.StatusConfirmed
	return appt, nil
}

// CancelAppointment releases exactly one capacity unit per cancelled
// appointment; repeated calls are no-ops. The release is keyed off the
// appointment's capacity_released claim, not the status transition itself,
// so a cancel whose release failed can be retried until the unit is
// actually given back.
func (s *BookingService) CancelAppointment(ctx context.Context, appointmentID string) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	transitioned, err := s.store.CancelAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	claimed, err := s.store.ClaimCapacityRelease(ctx, appointmentID)
	if err != nil {
		return err
	}
	if claimed {
		if err := s.capacity.Release(ctx, appt.TimeSlotID); err != nil {
			s.logger.Error().Err(err).Str("appointment_id", appointmentID).
				Str("slot_id", appt.TimeSlotID).Msg("release after cancel failed")
			// Re-arm so a retry can still give the unit back.
			if unclaimErr := s.store.UnclaimCapacityRelease(ctx, appointmentID); unclaimErr != nil {
				s.logger.Error().Err(unclaimErr).Str("appointment_id", appointmentID).
					Msg("unclaim capacity release failed, unit leaked")
			}
			return err
		}
	}

	if !transitioned {
		return nil
	}

	if err := s.store.DetachAppointment(ctx, appt.OrderID); err != nil {
		s.logger.Error().Err(err).Str("order_id", appt.OrderID).Msg("detach appointment failed")
	}

	s.publishEvent(events.EventAppointmentCancelled, nil, appt)
	return nil
}

// CompleteAppointment marks the appointment and its order completed.
func (s *BookingService) CompleteAppointment(ctx context.Context, appointmentID string) error {
	appt, err := s.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return err
	}

	if err := s.store.CompleteAppointment(ctx, appointmentID); err != nil {
		return err
	}

	if err := s.store.UpdateOrderStatus(ctx, appt.OrderID, models.StatusCompleted, ""); err != nil {
		s.logger.Error().Err(err).Str("order_id", appt.OrderID).Msg("order completion update failed")
	}

	s.publishEvent(events.EventAppointmentCompleted, nil, appt)
	return nil
}

// UpdateOrderStatus is the admin path for moving an order through its
// lifecycle, optionally attaching admin notes.
func (s *BookingService) UpdateOrderStatus(ctx context.Context, orderID, status, adminNotes string) error {
	if !models.ValidOrderStatus(status) {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.store.UpdateOrderStatus(ctx, orderID, status, adminNotes)
}

// DeleteOrder removes an order. Any still-confirmed appointment is
// cancelled first so its capacity unit is given back.
func (s *BookingService) DeleteOrder(ctx context.Context, orderID string) error {
	appts, err := s.store.GetAppointmentsByOrder(ctx, orderID)
	if err != nil {
		return err
	}

	for _, appt := range appts {
		if appt.Status != models.StatusConfirmed {
			continue
		}
		if err := s.CancelAppointment(ctx, appt.ID); err != nil {
			return fmt.Errorf("cancel appointment %s before order deletion: %w", appt.ID, err)
		}
	}

	return s.store.DeleteOrder(ctx, orderID)
}

// GenerateSlots creates bookable slots for every day in the range using
// the configured working hours. Idempotent: existing slots are kept.
func (s *BookingService) GenerateSlots(ctx context.Context, startDate, endDate time.Time, durationMinutes int) ([]*models.TimeSlot, error) {
	if endDate.Before(startDate) {
		return nil, fmt.Errorf("%w: end date before start date", ErrInvalidOrder)
	}
	if err := s.ValidateBookingDate(endDate); err != nil {
		return nil, err
	}
	if durationMinutes <= 0 {
		durationMinutes = s.slotDuration
	}
	return s.store.GenerateSlots(ctx, startDate, endDate, durationMinutes, s.openHour, s.closeHour, s.slotCapacity)
}

// GetAvailableSlots returns slots with free capacity in the range.
func (s *BookingService) GetAvailableSlots(ctx context.Context, startDate, endDate time.Time) ([]*models.TimeSlot, error) {
	return s.capacity.Available(ctx, startDate, endDate)
}

// SetSlotActive opens or closes a slot for new bookings.
func (s *BookingService) SetSlotActive(ctx context.Context, slotID string, active bool) error {
	return s.store.SetSlotActive(ctx, slotID, active)
}

// DeleteSlot removes a slot; the store refuses while non-cancelled
// appointments reference it.
func (s *BookingService) DeleteSlot(ctx context.Context, slotID string) error {
	return s.store.DeleteSlot(ctx, slotID)
}

func (s *BookingService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *BookingService) ListOrders(ctx context.Context, status string, limit, offset int) ([]*models.Order, error) {
	return s.store.ListOrders(ctx, status, limit, offset)
}

func (s *BookingService) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	return s.store.GetAppointment(ctx, appointmentID)
}

func (s *BookingService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	return s.store.GetDashboardStats(ctx, time.Now())
}

func (s *BookingService) sendConfirmation(ctx context.Context, order *models.Order, appt *models.Appointment) {
	if s.notifier == nil {
		return
	}

	slot, err := s.store.GetSlot(ctx, appt.TimeSlotID)
	if err != nil {
		s.logger.Error().Err(err).Str("slot_id", appt.TimeSlotID).Msg("confirmation: load slot failed")
		return
	}

	n := models.Notification{
		Template:  models.TemplateBookingConfirmation,
		Recipient: order.ClientEmail,
		Variables: map[string]string{
			"client_name": order.ClientName,
			"service":     order.Service,
			"date":        slot.Date.Format("2006-01-02"),
			"time":        slot.StartTime,
			"price":       fmt.Sprintf("%.2f", order.Price),
		},
	}
	// The booking is final once the appointment exists; a failed
	// confirmation mail never rolls it back.
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn().Err(err).Str("order_id", order.ID).Msg("confirmation notification failed")
	}
}

func (s *BookingService) publishEvent(eventType string, order *models.Order, appt *models.Appointment) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{}
	if order != nil {
		payload.OrderID = order.ID
		payload.ClientEmail = order.ClientEmail
		payload.Service = order.Service
		payload.Status = order.Status
	}
	if appt != nil {
		payload.OrderID = appt.OrderID
		payload.AppointmentID = appt.ID
		payload.TimeSlotID = appt.TimeSlotID
		payload.Status = appt.Status
		if payload.ClientEmail == "" {
			payload.ClientEmail = appt.ClientEmail
		}
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
