package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {OrderStatusCompleted},
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransition reports whether an order may move from one status to another.
// Statuses only move forward; cancellation is allowed until delivery.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentMethod records how an order was paid for.
type PaymentMethod string

const (
	PaymentMethodCard           PaymentMethod = "card"
	PaymentMethodCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentMethodWallet         PaymentMethod = "wallet"
)

// LineItem is one product line of an order.
type LineItem struct {
	ProductRef string          `json:"product_ref"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity"`
	Currency   string          `json:"currency"`
}

// Total returns UnitPrice * Quantity.
func (l LineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// ShippingAddress is where and to whom an order is delivered.
type ShippingAddress struct {
	RecipientName string `json:"recipient_name"`
	Phone         string `json:"phone"`
	AddressLine   string `json:"address_line"`
	City          string `json:"city"`
	Notes         string `json:"notes,omitempty"`
}

var ErrIncompleteShipping = errors.New("shipping address requires recipient name, phone, address line and city")

// Validate checks the mandatory address fields.
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.RecipientName) == "" ||
		strings.TrimSpace(a.Phone) == "" ||
		strings.TrimSpace(a.AddressLine) == "" ||
		strings.TrimSpace(a.City) == "" {
		return ErrIncompleteShipping
	}
	return nil
}

// OrderDetails is the client-supplied part of an order. It travels inside
// intent metadata for card purchases and in the request body otherwise.
type OrderDetails struct {
	LineItems    []LineItem      `json:"line_items"`
	Shipping     ShippingAddress `json:"shipping"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
}

// LineItemsTotal sums the line items.
func (d OrderDetails) LineItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.LineItems {
		total = total.Add(item.Total())
	}
	return total
}

// CurrencyOf returns the currency shared by all line items, or "" when there
// are no items. ok is false when items disagree.
func (d OrderDetails) CurrencyOf() (currency string, ok bool) {
	for _, item := range d.LineItems {
		if currency == "" {
			currency = item.Currency
			continue
		}
		if !strings.EqualFold(item.Currency, currency) {
			return "", false
		}
	}
	return currency, true
}

// Order is a purchase record. It is created exactly once per purchase event.
type Order struct {
	OrderID          string          `json:"order_id"`
	AccountID        string          `json:"account_id"`
	LineItems        []LineItem      `json:"line_items"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	Currency         string          `json:"currency"`
	Shipping         ShippingAddress `json:"shipping"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Status           OrderStatus     `json:"status"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// GroupOrdersByStatus buckets orders by status, preserving their order.
func GroupOrdersByStatus(orders []Order) map[OrderStatus][]Order {
	grouped := make(map[OrderStatus][]Order)
	for _, o := range orders {
		grouped[o.Status] = append(grouped[o.Status], o)
	}
	return grouped
}
