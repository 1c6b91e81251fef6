package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// OrderStore implements ports.OrderStore.
type OrderStore struct {
	pool Pool
}

// NewOrderStore creates a new OrderStore.
func NewOrderStore(pool Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `order_id, account_id, line_items, total_amount, currency, shipping,
	payment_method, status, gateway_reference, delivery_date, created_at, updated_at`

// Create inserts order. An empty OrderID is assigned a new UUID.
func (r *OrderStore) Create(ctx context.Context, order *domain.Order) (string, error) {
	if order.OrderID == "" {
		order.OrderID = uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = domain.SettlementTime()
	}
	order.UpdatedAt = order.CreatedAt

	items, err := json.Marshal(order.LineItems)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return "", fmt.Errorf("encode shipping: %w", err)
	}

	_, err = conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		order.OrderID, order.AccountID, items, order.TotalAmount, order.Currency, shipping,
		string(order.PaymentMethod), string(order.Status), nullIfEmpty(order.GatewayReference),
		order.DeliveryDate, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", apperror.ErrDuplicateOrder(order.OrderID)
		}
		return "", fmt.Errorf("insert order: %w", err)
	}
	return order.OrderID, nil
}

// Get fetches an order by ID.
func (r *OrderStore) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	return r.get(ctx, orderID, "")
}

func (r *OrderStore) get(ctx context.Context, orderID, suffix string) (*domain.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_id = $1`+suffix, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	o, err := pgx.CollectOneRow(rows, scanOrder)
	switch {
	case err == nil:
		return &o, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, apperror.ErrNotFound("Order")
	default:
		return nil, fmt.Errorf("scan order: %w", err)
	}
}

// ListByAccount returns the account's orders newest first.
func (r *OrderStore) ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE account_id = $1 ORDER BY seq DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// UpdateStatus locks the order row and applies the transition if allowed.
func (r *OrderStore) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	var updated *domain.Order
	err := withinTx(ctx, r.pool, func(ctx context.Context) error {
		o, err := r.get(ctx, orderID, " FOR UPDATE")
		if err != nil {
			return err
		}
		if !domain.CanTransition(o.Status, status) {
			return apperror.ErrInvalidStatusTransition(string(o.Status), string(status))
		}

		o.Status = status
		o.UpdatedAt = domain.SettlementTime()
		if _, err := conn(ctx, r.pool).Exec(ctx,
			`UPDATE orders SET status = $1, updated_at = $2 WHERE order_id = $3`,
			string(o.Status), o.UpdatedAt, orderID,
		); err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func scanOrder(row pgx.CollectableRow) (domain.Order, error) {
	var (
		o                domain.Order
		items, shipping  []byte
		method, status   string
		gatewayReference *string
		deliveryDate     *time.Time
	)
	err := row.Scan(
		&o.OrderID, &o.AccountID, &items, &o.TotalAmount, &o.Currency, &shipping,
		&method, &status, &gatewayReference, &deliveryDate, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(items, &o.LineItems); err != nil {
		return o, fmt.Errorf("decode line items: %w", err)
	}
	if err := json.Unmarshal(shipping, &o.Shipping); err != nil {
		return o, fmt.Errorf("decode shipping: %w", err)
	}
	o.PaymentMethod = domain.PaymentMethod(method)
	o.Status = domain.OrderStatus(status)
	o.GatewayReference = derefString(gatewayReference)
	if deliveryDate != nil {
		d := deliveryDate.UTC()
		o.DeliveryDate = &d
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}
