package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dataikos/internal/domain"
	"dataikos/internal/events"
	"dataikos/internal/metrics"
	"dataikos/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Sweep states. A sweep owns the state from the CAS at its start until it
// resets to idle, which is what keeps overlapping ticks from double-sending.
const (
	stateIdle int32 = iota
	stateScanning
	stateDispatching
)

// leaseKey guards the sweep across instances when redis is configured.
const leaseKey = "reminders:sweep:lease"

// ErrSweepActive is returned when a sweep is requested while another one
// still holds the state.
var ErrSweepActive = errors.New("reminder sweep already running")

// Reminder periodically finds confirmed appointments starting within the
// reminder window and dispatches one reminder each. An appointment is
// marked only after its notification was handed off, so a failed delivery
// is retried on the next cycle.
type Reminder struct {
	store    domain.ReminderStore
	notifier domain.Notifier
	eventBus domain.EventPublisher
	redis    *redis.Client
	logger   zerolog.Logger

	interval time.Duration
	window   time.Duration
	limiter  *rate.Limiter
	now      func() time.Time

	instanceID string
	state      atomic.Int32

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Config struct {
	Interval      time.Duration
	Window        time.Duration
	RatePerSecond float64
	Burst         int
}

func NewReminder(store domain.ReminderStore, notifier domain.Notifier, eventBus domain.EventPublisher, redisClient *redis.Client, cfg Config, logger *zerolog.Logger) *Reminder {
	if cfg.Interval <= 0 {
		cfg.Interval = models.DefaultReminderIntervalMinutes * time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = models.ReminderWindowHours * time.Hour
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Reminder{
		store:      store,
		notifier:   notifier,
		eventBus:   eventBus,
		redis:      redisClient,
		logger:     logger.With().Str("component", "reminder_scheduler").Logger(),
		interval:   cfg.Interval,
		window:     cfg.Window,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		now:        time.Now,
		instanceID: uuid.New().String(),
	}
}

// Start launches the sweep loop. The first sweep runs one interval after
// start, not immediately, so a crash-looping process does not hammer the
// store.
func (r *Reminder) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info().
			Dur("interval", r.interval).
			Dur("window", r.window).
			Msg("reminder scheduler started")

		for {
			select {
			case <-ctx.Done():
				r.logger.Info().Msg("reminder scheduler stopped")
				return
			case <-ticker.C:
				if _, _, err := r.RunSweep(ctx); err != nil && !errors.Is(err, ErrSweepActive) {
					r.logger.Error().Err(err).Msg("reminder sweep error")
				}
			}
		}
	}()
}

// Stop cancels the loop and waits for an in-flight sweep to finish.
func (r *Reminder) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// RunSweep executes one sweep. Only one sweep runs at a time per process;
// a concurrent call returns ErrSweepActive. With redis configured, a lease
// additionally serializes sweeps across instances.
func (r *Reminder) RunSweep(ctx context.Context) (sent, failed int, err error) {
	if !r.state.CompareAndSwap(stateIdle, stateScanning) {
		metrics.IncSweepSkipped()
		return 0, 0, ErrSweepActive
	}
	defer r.state.Store(stateIdle)

	if !r.acquireLease(ctx) {
		metrics.IncSweepSkipped()
		return 0, 0, nil
	}

	started := r.now()
	defer func() { metrics.ObserveSweepDuration(time.Since(started)) }()

	from := started
	to := started.Add(r.window)
	due, err := r.store.GetAppointmentsDueForReminder(ctx, from, to)
	if err != nil {
		return 0, 0, err
	}
	if len(due) == 0 {
		return 0, 0, nil
	}

	r.state.Store(stateDispatching)
	r.logger.Info().Int("due", len(due)).Time("until", to).Msg("reminder sweep dispatching")

	for _, appt := range due {
		select {
		case <-ctx.Done():
			return sent, failed, ctx.Err()
		default:
		}

		if err := r.dispatch(ctx, appt); err != nil {
			// One broken appointment never stops the sweep.
			failed++
			metrics.IncReminderFailed()
			r.logger.Error().Err(err).
				Str("appointment_id", appt.ID).
				Str("recipient", appt.ClientEmail).
				Msg("reminder dispatch failed, will retry next sweep")
			continue
		}
		sent++
		metrics.IncReminderSent()
	}

	r.logger.Info().Int("sent", sent).Int("failed", failed).Msg("reminder sweep finished")
	return sent, failed, nil
}

func (r *Reminder) dispatch(ctx context.Context, appt *models.UpcomingAppointment) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}

	n := models.Notification{
		Template:  models.TemplateAppointmentReminder,
		Recipient: appt.ClientEmail,
		Variables: map[string]string{
			"client_name": appt.ClientName,
			"service":     appt.Service,
			"date":        appt.SlotDate.Format("2006-01-02"),
			"time":        appt.StartTime,
		},
	}
	if err := r.notifier.Send(ctx, n); err != nil {
		return err
	}

	// Mark only after the hand-off succeeded. A failed mark means one
	// duplicate reminder on the next sweep, never a silently lost one.
	if err := r.store.MarkReminderSent(ctx, appt.ID); err != nil {
		return err
	}

	if r.eventBus != nil {
		payload := events.BookingEventPayload{
			OrderID:       appt.OrderID,
			AppointmentID: appt.ID,
			TimeSlotID:    appt.TimeSlotID,
			ClientEmail:   appt.ClientEmail,
			Service:       appt.Service,
			Status:        appt.Status,
			SlotDate:      appt.SlotDate,
		}
		if err := r.eventBus.PublishJSON(events.EventReminderSent, payload); err != nil {
			r.logger.Error().Err(err).Msg("publish reminder event error")
		}
	}
	return nil
}

// acquireLease takes the cross-instance sweep lease. Without redis every
// instance sweeps on its own; MarkReminderSent still keeps reminders
// single-send, the lease only avoids wasted work.
func (r *Reminder) acquireLease(ctx context.Context) bool {
	if r.redis == nil {
		return true
	}

	ok, err := r.redis.SetNX(ctx, leaseKey, r.instanceID, r.interval).Result()
	if err != nil {
		r.logger.Warn().Err(err).Msg("sweep lease unavailable, proceeding without it")
		return true
	}
	if !ok {
		r.logger.Debug().Msg("sweep lease held by another instance")
	}
	return ok
}
