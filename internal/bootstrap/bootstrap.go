// Package bootstrap wires configuration into storage backends and services.
// It is shared by the API server and the operator CLI.
package bootstrap

import (
	"context"
	"fmt"

	"settlement-core/config"
	"settlement-core/internal/adapter/gateway"
	"settlement-core/internal/adapter/storage/memory"
	pgStorage "settlement-core/internal/adapter/storage/postgres"
	redisStorage "settlement-core/internal/adapter/storage/redis"
	"settlement-core/internal/core/ports"
	"settlement-core/internal/service"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Storage is the selected persistence backend.
type Storage struct {
	Ledger         ports.LedgerStore
	Orders         ports.OrderStore
	Index          ports.IdempotencyIndex
	Transactor     ports.Transactor
	Audit          ports.AuditRepository
	HealthCheckers []ports.HealthChecker

	close func()
}

// Close releases backend connections.
func (s *Storage) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStorage opens the backend named by cfg.Storage.Driver. The postgres
// backend is migrated first when database.auto_migrate is set.
func OpenStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	if !cfg.Storage.UsePostgres() {
		db := memory.NewDB()
		tx := memory.NewTransactor(db)
		log.Warn().Msg("Using in-memory storage, state is lost on restart")
		return &Storage{
			Ledger:         memory.NewLedgerStore(db, cfg.Ledger.DefaultCurrency),
			Orders:         memory.NewOrderStore(db),
			Index:          memory.NewSettlementIndex(db),
			Transactor:     tx,
			Audit:          memory.NewAuditStore(),
			HealthCheckers: []ports.HealthChecker{ports.TransactorCheck("memory", tx)},
		}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(cfg.Database.DSN()); err != nil {
			return nil, err
		}
		log.Info().Msg("Database migrations applied")
	}

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		return nil, err
	}

	return &Storage{
		Ledger:         pgStorage.NewLedgerStore(pool, cfg.Ledger.DefaultCurrency),
		Orders:         pgStorage.NewOrderStore(pool),
		Index:          pgStorage.NewSettlementIndex(pool),
		Transactor:     pgStorage.NewTransactor(pool),
		Audit:          pgStorage.NewAuditRepo(pool),
		HealthCheckers: []ports.HealthChecker{pgStorage.NewHealthCheck(pool)},
		close:          pool.Close,
	}, nil
}

// Redis holds the Redis-backed stores. A nil *Redis means Redis is disabled.
type Redis struct {
	Client    *goredis.Client
	Cache     *redisStorage.SettlementCache
	Events    *redisStorage.EventStore
	RateLimit *redisStorage.RateLimitStore
	Health    *redisStorage.HealthCheck
}

// OpenRedis connects to Redis when redis.enabled is set and returns nil otherwise.
func OpenRedis(ctx context.Context, cfg config.RedisConfig, log zerolog.Logger) (*Redis, error) {
	if !cfg.Enabled {
		log.Info().Msg("Redis disabled, settlement cache and event deduplication are off")
		return nil, nil
	}
	rdb, err := redisStorage.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Redis{
		Client:    rdb,
		Cache:     redisStorage.NewSettlementCache(rdb),
		Events:    redisStorage.NewEventStore(rdb),
		RateLimit: redisStorage.NewRateLimitStore(rdb),
		Health:    redisStorage.NewHealthCheck(rdb),
	}, nil
}

// settlementCache avoids handing a typed nil to the service when Redis is off.
func (r *Redis) settlementCache() ports.SettlementCache {
	if r == nil {
		return nil
	}
	return r.Cache
}

// NewSettlementService builds the settlement engine over storage, the optional
// Redis cache and the configured gateway.
func NewSettlementService(cfg *config.Config, store *Storage, rds *Redis, log zerolog.Logger) (*service.SettlementServiceImpl, *gateway.Client, error) {
	if cfg.Gateway.BaseURL == "" {
		return nil, nil, fmt.Errorf("gateway base_url is required")
	}
	gw := gateway.NewClient(cfg.Gateway, service.NewHMACSignatureService(), log)
	svc := service.NewSettlementService(
		store.Ledger,
		store.Orders,
		store.Index,
		rds.settlementCache(),
		gw,
		store.Transactor,
		log,
	)
	return svc, gw, nil
}
