package postgres

import (
	"context"
	"fmt"
)

// HealthCheck implements ports.HealthChecker. A reachable database without
// the settlement schema is reported unhealthy.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Ping(ctx context.Context) error {
	if err := h.pool.Ping(ctx); err != nil {
		return err
	}
	var migrated bool
	if err := h.pool.QueryRow(ctx, `SELECT to_regclass('settlements') IS NOT NULL`).Scan(&migrated); err != nil {
		return fmt.Errorf("checking schema: %w", err)
	}
	if !migrated {
		return fmt.Errorf("settlement schema is not migrated")
	}
	return nil
}

func (h *HealthCheck) Name() string {
	return "postgresql"
}
