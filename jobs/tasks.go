// Package jobs wires background processing: the Asynq worker, task
// definitions and the enqueue client used by the HTTP process.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskOrderSplit splits an approved requisition into purchase orders.
	TaskOrderSplit = "procurement:order_split"
	// TaskNotification fans a domain event out to notification channels.
	TaskNotification = "notify:event"
	// TaskIdempotencyCleanup prunes expired idempotency keys.
	TaskIdempotencyCleanup = "maintenance:idempotency_cleanup"
)

// NotificationPayload carries a domain event through the queue.
type NotificationPayload struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// NewNotificationTask constructs an Asynq task for a domain event.
func NewNotificationTask(payload NotificationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotification, data), nil
}

// NewNotificationHandler processes TaskNotification tasks. Delivery channels
// beyond the structured log hook in here.
func NewNotificationHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotificationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		logger.Info("domain event",
			slog.String("event", payload.Event),
			slog.Any("payload", payload.Payload))
		return nil
	}
}
