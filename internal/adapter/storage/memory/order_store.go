package memory

import (
	"context"
	"sort"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"

	"github.com/google/uuid"
)

// OrderStore implements ports.OrderStore.
type OrderStore struct {
	db *DB
}

// NewOrderStore creates an order store over db.
func NewOrderStore(db *DB) *OrderStore {
	return &OrderStore{db: db}
}

// Create stores order. An empty OrderID is assigned a new UUID.
func (s *OrderStore) Create(ctx context.Context, order *domain.Order) (string, error) {
	u, release := s.db.acquire(ctx)
	defer release()

	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	if _, exists := s.db.orders[order.OrderID]; exists {
		return "", apperror.ErrDuplicateOrder(order.OrderID)
	}

	now := domain.SettlementTime()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = order.CreatedAt

	id := order.OrderID
	s.db.nextSeq++
	s.db.orders[id] = cloneOrder(order)
	s.db.orderSeq[id] = s.db.nextSeq
	u.onRollback(func() {
		delete(s.db.orders, id)
		delete(s.db.orderSeq, id)
	})

	return id, nil
}

// Get returns the order or NotFound.
func (s *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	_, release := s.db.acquire(ctx)
	defer release()

	o, ok := s.db.orders[orderID]
	if !ok {
		return nil, apperror.ErrNotFound("Order")
	}
	return cloneOrder(o), nil
}

// ListByAccount returns the account's orders newest first.
func (s *OrderStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error) {
	_, release := s.db.acquire(ctx)
	defer release()

	ids := make([]string, 0)
	for id, o := range s.db.orders {
		if o.AccountID == accountID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.db.orderSeq[ids[i]] > s.db.orderSeq[ids[j]]
	})

	out := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneOrder(s.db.orders[id]))
	}
	return out, nil
}

// UpdateStatus moves the order to status if the transition is allowed.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	u, release := s.db.acquire(ctx)
	defer release()

	o, ok := s.db.orders[orderID]
	if !ok {
		return nil, apperror.ErrNotFound("Order")
	}
	if !domain.CanTransition(o.Status, status) {
		return nil, apperror.ErrInvalidStatusTransition(string(o.Status), string(status))
	}

	prevStatus, prevUpdated := o.Status, o.UpdatedAt
	o.Status = status
	o.UpdatedAt = domain.SettlementTime()
	u.onRollback(func() {
		o.Status = prevStatus
		o.UpdatedAt = prevUpdated
	})

	return cloneOrder(o), nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.LineItems = append([]domain.LineItem(nil), o.LineItems...)
	if o.DeliveryDate != nil {
		d := *o.DeliveryDate
		c.DeliveryDate = &d
	}
	return &c
}
