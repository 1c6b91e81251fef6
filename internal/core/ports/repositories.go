package ports

import (
	"context"

	"settlement-core/internal/core/domain"
)

// Transactor runs fn as one atomic unit of work. Stores called with the ctx
// passed to fn join the unit; any error returned by fn rolls everything back.
// Nested calls join the outer unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LedgerStore owns wallets and their append-only transaction logs.
type LedgerStore interface {
	// GetOrCreate returns the account's wallet, creating an empty one on first access.
	GetOrCreate(ctx context.Context, accountID string) (*domain.Wallet, error)
	// AppendTransaction applies t to the balance and appends it to the log atomically.
	// Debits that would overdraw fail with InsufficientFunds and change nothing.
	AppendTransaction(ctx context.Context, accountID string, t domain.Transaction) (*domain.Wallet, error)
	// ListTransactions returns the log oldest first.
	ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error)
}

// OrderStore persists orders keyed by order ID.
type OrderStore interface {
	Create(ctx context.Context, order *domain.Order) (string, error)
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	// ListByAccount returns the account's orders newest first.
	ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error)
}

// IdempotencyIndex guarantees a gateway reference is settled at most once.
type IdempotencyIndex interface {
	// TryClaim inserts a pending record for reference if none exists.
	TryClaim(ctx context.Context, reference string) (domain.ClaimResult, error)
	// Record finalizes a claim with its outcome.
	Record(ctx context.Context, reference string, outcome domain.SettlementOutcome) (*domain.SettlementRecord, error)
	// Get returns the record for reference, or nil when there is none.
	Get(ctx context.Context, reference string) (*domain.SettlementRecord, error)
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}
