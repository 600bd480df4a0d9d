package config

import (
	"errors"
	"fmt"
	"os"

	"dataikos/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	Booking       BookingConfig       `yaml:"booking"`
	Reminders     ReminderConfig      `yaml:"reminders"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Exports       ExportConfig        `yaml:"exports"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"`
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type BookingConfig struct {
	OpenHour            int   `yaml:"open_hour"`
	CloseHour           int   `yaml:"close_hour"`
	SlotDurationMinutes int   `yaml:"slot_duration_minutes"`
	SlotCapacity        int64 `yaml:"slot_capacity"`
	MaxAdvanceDays      int   `yaml:"max_advance_days"`
	AutoGenerateDays    int   `yaml:"auto_generate_days"`
}

type ReminderConfig struct {
	Enabled         bool    `yaml:"enabled"`
	IntervalMinutes int     `yaml:"interval_minutes"`
	WindowHours     int     `yaml:"window_hours"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
	Burst           int     `yaml:"burst"`
}

type NotificationsConfig struct {
	QueueKey      string `yaml:"queue_key"`
	DeadLetterKey string `yaml:"dead_letter_key"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

func Load(configPath string) (*Config, error) {
	// .env является опциональным
	_ = godotenv.Load(".env")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if c.Booking.OpenHour < 0 || c.Booking.CloseHour > 24 {
		return fmt.Errorf("working hours out of range: %d..%d", c.Booking.OpenHour, c.Booking.CloseHour)
	}
	if c.Booking.OpenHour >= c.Booking.CloseHour {
		return fmt.Errorf("open hour %d must be before close hour %d", c.Booking.OpenHour, c.Booking.CloseHour)
	}
	if c.Booking.SlotCapacity < 1 {
		return fmt.Errorf("slot capacity must be positive, got %d", c.Booking.SlotCapacity)
	}

	if c.Reminders.Enabled && c.Reminders.IntervalMinutes < 1 {
		return fmt.Errorf("reminder interval must be positive, got %d", c.Reminders.IntervalMinutes)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Booking defaults
	if c.Booking.OpenHour == 0 && c.Booking.CloseHour == 0 {
		c.Booking.OpenHour = models.DefaultOpenHour
		c.Booking.CloseHour = models.DefaultCloseHour
	}
	if c.Booking.SlotDurationMinutes == 0 {
		c.Booking.SlotDurationMinutes = models.DefaultSlotDurationMinutes
	}
	if c.Booking.SlotCapacity == 0 {
		c.Booking.SlotCapacity = models.DefaultSlotCapacity
	}
	if c.Booking.MaxAdvanceDays == 0 {
		c.Booking.MaxAdvanceDays = 365
	}

	// Reminder defaults
	if c.Reminders.IntervalMinutes == 0 {
		c.Reminders.IntervalMinutes = models.DefaultReminderIntervalMinutes
	}
	if c.Reminders.WindowHours == 0 {
		c.Reminders.WindowHours = models.ReminderWindowHours
	}
	if c.Reminders.RatePerSecond == 0 {
		c.Reminders.RatePerSecond = 5
	}
	if c.Reminders.Burst == 0 {
		c.Reminders.Burst = 1
	}

	if c.Notifications.QueueKey == "" {
		c.Notifications.QueueKey = models.NotifyQueueKey
	}
	if c.Notifications.DeadLetterKey == "" {
		c.Notifications.DeadLetterKey = models.NotifyDeadLetterKey
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
}
