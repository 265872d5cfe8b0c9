package procurement

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/procureflow/procureflow/internal/shared"
)

const summaryTTL = 30 * time.Second

// SummaryCache serves the per-tenant status summary from Redis, collapsing
// concurrent cache misses into a single database query per tenant.
type SummaryCache struct {
	service *Service
	client  *redis.Client
	group   singleflight.Group
	logger  *slog.Logger
}

// NewSummaryCache constructs the cache. A nil client degrades to pass-through
// with singleflight still collapsing concurrent misses.
func NewSummaryCache(service *Service, client *redis.Client, logger *slog.Logger) *SummaryCache {
	return &SummaryCache{service: service, client: client, logger: logger}
}

// Get returns the status summary for the tenant in scope.
func (c *SummaryCache) Get(ctx context.Context, scope shared.Scope) (map[Status]int, error) {
	key := fmt.Sprintf("procurement:summary:%d", scope.TenantID)
	if c.client != nil {
		cached, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var summary map[Status]int
			if err := json.Unmarshal(cached, &summary); err == nil {
				return summary, nil
			}
		}
	}
	result, err, _ := c.group.Do(key, func() (any, error) {
		summary, err := c.service.StatusSummary(ctx, scope)
		if err != nil {
			return nil, err
		}
		if c.client != nil {
			if payload, err := json.Marshal(summary); err == nil {
				if err := c.client.Set(ctx, key, payload, summaryTTL).Err(); err != nil {
					c.logger.Warn("cache status summary", slog.Int64("tenant", scope.TenantID), slog.Any("error", err))
				}
			}
		}
		return summary, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(map[Status]int), nil
}

// Invalidate drops the cached summary after a status change.
func (c *SummaryCache) Invalidate(ctx context.Context, tenantID int64) {
	if c.client == nil {
		return
	}
	key := fmt.Sprintf("procurement:summary:%d", tenantID)
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn("invalidate status summary", slog.Int64("tenant", tenantID), slog.Any("error", err))
	}
}
