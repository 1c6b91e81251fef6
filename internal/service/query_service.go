package service

import (
	"context"
	"fmt"
	"strings"

	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/apperror"
)

// QueryServiceImpl implements ports.QueryService.
type QueryServiceImpl struct {
	ledger ports.LedgerStore
	orders ports.OrderStore
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(ledger ports.LedgerStore, orders ports.OrderStore) *QueryServiceImpl {
	return &QueryServiceImpl{ledger: ledger, orders: orders}
}

// GetWallet returns the account's wallet, creating an empty one on first access.
func (s *QueryServiceImpl) GetWallet(ctx context.Context, accountID string) (*domain.Wallet, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, apperror.Validation("account_id is required")
	}
	w, err := s.ledger.GetOrCreate(ctx, accountID)
	if err != nil {
		return nil, toAppError(err)
	}
	return w, nil
}

// ListTransactions returns the account's ledger oldest first.
func (s *QueryServiceImpl) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, apperror.Validation("account_id is required")
	}
	txs, err := s.ledger.ListTransactions(ctx, accountID)
	if err != nil {
		return nil, toAppError(err)
	}
	return txs, nil
}

// ListOrders returns the account's orders newest first, optionally filtered by status.
func (s *QueryServiceImpl) ListOrders(ctx context.Context, accountID string, status *domain.OrderStatus) ([]domain.Order, error) {
	if status != nil && !status.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown order status %q", *status))
	}
	orders, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, toAppError(err)
	}
	if status == nil {
		return orders, nil
	}

	filtered := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == *status {
			filtered = append(filtered, o)
		}
	}
	return filtered, nil
}

// GetOrder returns one of the account's orders. Orders of other accounts are
// reported as not found.
func (s *QueryServiceImpl) GetOrder(ctx context.Context, accountID, orderID string) (*domain.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, toAppError(err)
	}
	if o.AccountID != accountID {
		return nil, apperror.ErrNotFound("Order")
	}
	return o, nil
}
