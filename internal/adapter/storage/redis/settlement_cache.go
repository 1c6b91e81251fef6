package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-core/internal/core/domain"

	goredis "github.com/redis/go-redis/v9"
)

// SettlementCache implements ports.SettlementCache using Redis.
// Only settled records are cached; the idempotency index stays authoritative.
type SettlementCache struct {
	client *goredis.Client
	prefix string
}

// NewSettlementCache creates a new Redis-backed settlement cache.
func NewSettlementCache(client *goredis.Client) *SettlementCache {
	return &SettlementCache{
		client: client,
		prefix: "settlement:",
	}
}

// Get retrieves a cached settlement by gateway reference.
// Returns nil, nil if the key does not exist.
func (c *SettlementCache) Get(ctx context.Context, reference string) (*domain.SettlementRecord, error) {
	val, err := c.client.Get(ctx, c.prefix+reference).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("redis settlement get: %w", err)
	}

	var rec domain.SettlementRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("redis settlement decode: %w", err)
	}
	return &rec, nil
}

// Set stores a settled record with TTL. Pending records are ignored.
func (c *SettlementCache) Set(ctx context.Context, record *domain.SettlementRecord, ttl time.Duration) error {
	if !record.IsSettled() {
		return nil
	}

	val, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redis settlement encode: %w", err)
	}
	if err := c.client.Set(ctx, c.prefix+record.Reference, val, ttl).Err(); err != nil {
		return fmt.Errorf("redis settlement set: %w", err)
	}
	return nil
}
