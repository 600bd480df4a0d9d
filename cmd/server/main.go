package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dataikos/internal/capacity"
	"dataikos/internal/config"
	"dataikos/internal/database"
	"dataikos/internal/events"
	"dataikos/internal/logging"
	"dataikos/internal/metrics"
	"dataikos/internal/notify"
	"dataikos/internal/scheduler"
	"dataikos/internal/service"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	eventBus := events.NewEventBus()
	events.SubscribeAudit(eventBus, &logger)
	notifier := notify.NewQueueNotifier(redisClient, cfg.Notifications.QueueKey, cfg.Notifications.DeadLetterKey, &logger)
	capacityManager := capacity.NewManager(db, &logger)

	bookingService := service.NewBookingService(db, capacityManager, notifier, eventBus, service.Options{
		MaxAdvanceDays:      cfg.Booking.MaxAdvanceDays,
		OpenHour:            cfg.Booking.OpenHour,
		CloseHour:           cfg.Booking.CloseHour,
		SlotDurationMinutes: cfg.Booking.SlotDurationMinutes,
		SlotCapacity:        cfg.Booking.SlotCapacity,
	}, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Booking.AutoGenerateDays > 0 {
		start := time.Now()
		end := start.AddDate(0, 0, cfg.Booking.AutoGenerateDays)
		slots, err := bookingService.GenerateSlots(ctx, start, end, cfg.Booking.SlotDurationMinutes)
		if err != nil {
			logger.Error().Err(err).Msg("slot auto-generation failed")
		} else {
			logger.Info().Int("slots", len(slots)).Int("days", cfg.Booking.AutoGenerateDays).
				Msg("slots generated for booking horizon")
		}
	}

	startMetrics(ctx, cfg, &logger)

	var reminder *scheduler.Reminder
	if cfg.Reminders.Enabled {
		reminder = scheduler.NewReminder(db, notifier, eventBus, redisClient, scheduler.Config{
			Interval:      time.Duration(cfg.Reminders.IntervalMinutes) * time.Minute,
			Window:        time.Duration(cfg.Reminders.WindowHours) * time.Hour,
			RatePerSecond: cfg.Reminders.RatePerSecond,
			Burst:         cfg.Reminders.Burst,
		}, &logger)
		reminder.Start(ctx)
	}

	var backup *database.BackupService
	if cfg.Backup.Enabled {
		backup = database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	logger.Info().
		Str("db_path", cfg.Database.Path).
		Bool("reminders", cfg.Reminders.Enabled).
		Bool("backup", cfg.Backup.Enabled).
		Msg("booking service started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	if reminder != nil {
		reminder.Stop()
	}

	logger.Info().Msg("booking service stopped")
	return nil
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "server-main").Logger()

	return cfg, logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
