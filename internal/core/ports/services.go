package ports

import (
	"context"
	"time"

	"settlement-core/internal/core/domain"

	"github.com/shopspring/decimal"
)

// SignatureService signs and verifies timestamped gateway callbacks.
// The signed message is "<unix>.<payload>".
type SignatureService interface {
	Sign(secret string, unix int64, payload []byte) string
	// VerifyAny reports whether any candidate matches. Gateways send more than
	// one signature while a webhook secret is being rotated.
	VerifyAny(secret string, unix int64, payload []byte, candidates []string) bool
}

// TokenService handles bearer tokens issued by the session service.
type TokenService interface {
	Generate(accountID string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID string
}

// SettlementCache is the Redis fast path in front of the IdempotencyIndex.
type SettlementCache interface {
	// Get returns the cached record or nil on a miss.
	Get(ctx context.Context, reference string) (*domain.SettlementRecord, error)
	Set(ctx context.Context, record *domain.SettlementRecord, ttl time.Duration) error
}

// EventStore remembers which gateway events have been handled.
type EventStore interface {
	IsProcessed(ctx context.Context, eventID string) (bool, error)
	// MarkProcessed returns false if the event was already marked.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// AuditService records audited actions without blocking the caller.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// SettlementService turns gateway confirmations and wallet/COD checkouts into
// ledger and order mutations, exactly once per payment.
type SettlementService interface {
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResult, error)
	Reconcile(ctx context.Context, req ReconcileRequest) (*domain.SettlementRecord, error)
	ReconcileEvent(ctx context.Context, event *domain.GatewayEvent) (*domain.SettlementRecord, error)
	PayWithWallet(ctx context.Context, req WalletPaymentRequest) (*domain.Order, error)
	PayCashOnDelivery(ctx context.Context, req CashOnDeliveryRequest) (*domain.Order, error)
	AdvanceOrder(ctx context.Context, accountID, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

// CreateIntentRequest holds validated input for intent creation.
type CreateIntentRequest struct {
	AccountID string
	Amount    decimal.Decimal
	Currency  string
	Purpose   domain.Purpose
}

// IntentResult is returned to the client so it can pay the gateway directly.
type IntentResult struct {
	Reference    string              `json:"reference"`
	ClientSecret string              `json:"client_secret"`
	Status       domain.IntentStatus `json:"status"`
}

// ReconcileRequest is a client-channel confirmation. AccountID is optional;
// when set it must match the intent's owner.
type ReconcileRequest struct {
	Reference string
	AccountID string
	Channel   domain.Channel
}

// WalletPaymentRequest pays for an order from the wallet balance.
type WalletPaymentRequest struct {
	AccountID string
	Amount    decimal.Decimal
	Currency  string
	Order     domain.OrderDetails
}

// CashOnDeliveryRequest places an order paid at the door.
type CashOnDeliveryRequest struct {
	AccountID string
	Currency  string
	Order     domain.OrderDetails
}

// QueryService is the read side over wallets and orders.
type QueryService interface {
	GetWallet(ctx context.Context, accountID string) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
	ListOrders(ctx context.Context, accountID string, status *domain.OrderStatus) ([]domain.Order, error)
	GetOrder(ctx context.Context, accountID, orderID string) (*domain.Order, error)
}
