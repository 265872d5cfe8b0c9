package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/procureflow/procureflow/internal/shared"
)

const idempotencyRetention = 7 * 24 * time.Hour

// NewIdempotencyCleanupHandler prunes idempotency keys past retention.
func NewIdempotencyCleanupHandler(store *shared.IdempotencyStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			return err
		}
		logger.Info("idempotency cleanup complete")
		return nil
	}
}

// IdempotencyCleanupCron registers the nightly cleanup.
func IdempotencyCleanupCron() CronRegistration {
	return CronRegistration{
		Spec: "0 3 * * *",
		Task: asynq.NewTask(TaskIdempotencyCleanup, nil),
	}
}
