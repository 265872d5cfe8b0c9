// Package notify publishes domain events to the background queue, deduping
// redeliveries by event id.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/procureflow/procureflow/jobs"
)

const dedupeTTL = 24 * time.Hour

// QueuePort is the slice of the jobs client the notifier uses.
type QueuePort interface {
	EnqueueNotification(ctx context.Context, payload jobs.NotificationPayload) error
}

// Notifier hands domain events to the queue, best effort. A nil queue
// degrades to structured logging so services never need to nil-check.
type Notifier struct {
	queue  QueuePort
	client *redis.Client
	logger *slog.Logger
}

// New constructs a Notifier. Both queue and client may be nil.
func New(queue QueuePort, client *redis.Client, logger *slog.Logger) *Notifier {
	return &Notifier{queue: queue, client: client, logger: logger}
}

// Notify publishes one event. Events carrying an event_id are deduped in
// Redis; everything else is fire and forget.
func (n *Notifier) Notify(ctx context.Context, event string, payload map[string]any) {
	if n == nil {
		return
	}
	if id, ok := payload["event_id"].(string); ok && id != "" && n.client != nil {
		fresh, err := n.client.SetNX(ctx, "notify:seen:"+id, 1, dedupeTTL).Result()
		if err != nil {
			n.logger.Warn("notify dedupe", slog.String("event", event), slog.Any("error", err))
		} else if !fresh {
			return
		}
	}
	if n.queue == nil {
		n.logger.Info("domain event", slog.String("event", event), slog.Any("payload", payload))
		return
	}
	if err := n.queue.EnqueueNotification(ctx, jobs.NotificationPayload{Event: event, Payload: payload}); err != nil {
		n.logger.Error("enqueue notification", slog.String("event", event), slog.Any("error", err))
	}
}
