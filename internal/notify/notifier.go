package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dataikos/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrDelivery is the non-fatal delivery failure. Booking never surfaces it;
// the reminder sweep leaves the appointment for the next cycle.
var ErrDelivery = errors.New("notification delivery failed")

// QueueNotifier hands notifications to the external mailer through a redis
// outbox list. The core neither renders nor transports mail; it only needs
// to know whether the hand-off succeeded.
type QueueNotifier struct {
	client        *redis.Client
	queueKey      string
	deadLetterKey string
	logger        *zerolog.Logger
}

func NewQueueNotifier(client *redis.Client, queueKey, deadLetterKey string, logger *zerolog.Logger) *QueueNotifier {
	if queueKey == "" {
		queueKey = models.NotifyQueueKey
	}
	if deadLetterKey == "" {
		deadLetterKey = models.NotifyDeadLetterKey
	}
	return &QueueNotifier{
		client:        client,
		queueKey:      queueKey,
		deadLetterKey: deadLetterKey,
		logger:        logger,
	}
}

type queuedNotification struct {
	models.Notification
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Send enqueues the notification for the external mailer. A failed push is
// a delivery failure; the caller decides whether to retry on a later cycle.
func (n *QueueNotifier) Send(ctx context.Context, msg models.Notification) error {
	if n.client == nil {
		return fmt.Errorf("%w: no queue configured", ErrDelivery)
	}
	if msg.Recipient == "" {
		return fmt.Errorf("%w: empty recipient", ErrDelivery)
	}

	data, err := json.Marshal(queuedNotification{Notification: msg, EnqueuedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrDelivery, err)
	}

	if err := n.client.LPush(ctx, n.queueKey, data).Err(); err != nil {
		n.pushDeadLetter(data)
		return fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	n.logger.Debug().
		Str("template", msg.Template).
		Str("recipient", msg.Recipient).
		Msg("notification enqueued")
	return nil
}

func (n *QueueNotifier) pushDeadLetter(data []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := n.client.LPush(ctx, n.deadLetterKey, data).Err(); err != nil {
		n.logger.Error().Err(err).Msg("notification deadletter push failed")
	}
}
