package handler

import (
	"time"

	"settlement-core/internal/adapter/http/middleware"
	redisStore "settlement-core/internal/adapter/storage/redis"
	"settlement-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	SettlementSvc  ports.SettlementService
	QuerySvc       ports.QueryService
	Gateway        ports.IntentGateway
	EventStore     ports.EventStore           // nil = gateway callbacks are not deduplicated
	TokenSvc       ports.TokenService         // nil = account authentication disabled
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBodyBytes))

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(healthCheckTimeout, deps.HealthCheckers...))

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	intentHandler := NewIntentHandler(deps.SettlementSvc)
	settlementHandler := NewSettlementHandler(deps.SettlementSvc, deps.Gateway, deps.EventStore, deps.AuditSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.QuerySvc)
	orderHandler := NewOrderHandler(deps.SettlementSvc, deps.QuerySvc)

	v1 := r.Group("/api/v1")

	// Authenticated by the gateway signature only.
	v1.POST("/gateway-events", rl("gateway_events"), settlementHandler.GatewayEvent)

	account := v1.Group("", middleware.JWTAuth(deps.TokenSvc, deps.Logger))
	{
		account.POST("/intents", rl("intents"), intentHandler.CreateIntent)
		account.POST("/settlements", rl("settlements"), settlementHandler.Reconcile)
	}

	wallets := account.Group("/wallets")
	{
		wallets.GET("/:accountId", rl("queries"), walletHandler.GetWallet)
		wallets.GET("/:accountId/transactions", rl("queries"), walletHandler.ListTransactions)
	}

	orders := account.Group("/orders")
	{
		orders.POST("/wallet-payment", rl("orders"), orderHandler.PayWithWallet)
		orders.POST("/cash-on-delivery", rl("orders"), orderHandler.PayCashOnDelivery)
		orders.GET("/:accountId", rl("queries"), orderHandler.ListOrders)
		orders.GET("/:accountId/:orderId", rl("queries"), orderHandler.GetOrder)
		orders.POST("/:accountId/:orderId/status", rl("orders"), orderHandler.AdvanceOrder)
	}

	return r
}
