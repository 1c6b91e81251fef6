package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"settlement-core/config"
	httpHandler "settlement-core/internal/adapter/http/handler"
	"settlement-core/internal/bootstrap"
	"settlement-core/internal/core/ports"
	"settlement-core/internal/service"
	"settlement-core/pkg/logger"

	"github.com/gin-gonic/gin"
)

// tokenTTL only matters for tokens minted locally; the session service issues its own.
const tokenTTL = time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Str("storage", cfg.Storage.Driver).
		Int("port", cfg.Server.Port).
		Msg("Starting Settlement Core")

	ctx := context.Background()

	store, err := bootstrap.OpenStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	rds, err := bootstrap.OpenRedis(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	settlementSvc, gw, err := bootstrap.NewSettlementService(cfg, store, rds, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize settlement service")
	}
	querySvc := service.NewQueryService(store.Ledger, store.Orders)
	auditSvc := service.NewAuditService(store.Audit, log)

	deps := httpHandler.RouterDeps{
		SettlementSvc:  settlementSvc,
		QuerySvc:       querySvc,
		Gateway:        gw,
		HealthCheckers: append([]ports.HealthChecker{}, store.HealthCheckers...),
		AuditSvc:       auditSvc,
		Logger:         log,
	}
	if rds != nil {
		defer rds.Client.Close()
		deps.EventStore = rds.Events
		deps.RateLimitStore = rds.RateLimit
		deps.HealthCheckers = append(deps.HealthCheckers, rds.Health)
	}
	if cfg.JWT.Secret != "" {
		deps.TokenSvc = service.NewJWTTokenService(cfg.JWT.Secret, tokenTTL, cfg.JWT.Issuer)
	} else {
		log.Warn().Msg("jwt.secret is empty, account authentication is disabled")
	}
	if cfg.Gateway.WebhookSecret == "" {
		log.Warn().Msg("gateway.webhook_secret is empty, gateway callbacks cannot be authenticated")
	}

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	router := httpHandler.SetupRouter(deps)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
