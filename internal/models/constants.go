package models

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	TemplateBookingConfirmation = "booking_confirmation"
	TemplateAppointmentReminder = "appointment_reminder"
)

const (
	// DefaultSlotCapacity максимальное число записей на один слот
	DefaultSlotCapacity = 5

	// DefaultSlotDurationMinutes длительность слота по умолчанию
	DefaultSlotDurationMinutes = 60

	// DefaultOpenHour / DefaultCloseHour рабочие часы для генерации слотов
	DefaultOpenHour  = 9
	DefaultCloseHour = 18

	// ReminderWindowHours горизонт поиска записей для напоминаний
	ReminderWindowHours = 24

	// DefaultReminderIntervalMinutes период запуска обхода напоминаний
	DefaultReminderIntervalMinutes = 60

	// DefaultListLimit размер страницы списков по умолчанию
	DefaultListLimit = 100

	// NotifyQueueKey / NotifyDeadLetterKey ключи очереди уведомлений в Redis
	NotifyQueueKey      = "notifications:outbox"
	NotifyDeadLetterKey = "notifications:deadletter"
)

// OrderStatuses lists every state an order can be in.
var OrderStatuses = []string{
	StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled,
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}
