package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const healthKey = "health:settlement-core"

// HealthCheck implements ports.HealthChecker. It probes with a write because
// the settlement cache and event store are useless on a read-only replica.
type HealthCheck struct {
	client *goredis.Client
}

func NewHealthCheck(client *goredis.Client) *HealthCheck {
	return &HealthCheck{client: client}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.client.Set(ctx, healthKey, time.Now().Unix(), 30*time.Second).Err(); err != nil {
		return fmt.Errorf("redis write probe: %w", err)
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "redis"
}
