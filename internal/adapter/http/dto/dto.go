package dto

import (
	"time"

	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/apperror"

	"github.com/shopspring/decimal"
)

// LineItemRequest is one product line in an order request.
type LineItemRequest struct {
	ProductRef string          `json:"product_ref" binding:"required,max=100,safe_id"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   int             `json:"quantity" binding:"required,gt=0"`
	Currency   string          `json:"currency" binding:"omitempty,currency"`
}

// ShippingRequest is the delivery address of an order request.
type ShippingRequest struct {
	RecipientName string `json:"recipient_name" binding:"required,max=100"`
	Phone         string `json:"phone" binding:"required,max=30"`
	AddressLine   string `json:"address_line" binding:"required,max=200"`
	City          string `json:"city" binding:"required,max=100"`
	Notes         string `json:"notes" binding:"max=500"`
}

// OrderRequest carries the order details of a purchase.
type OrderRequest struct {
	LineItems    []LineItemRequest `json:"line_items" binding:"required,min=1,max=100,dive"`
	Shipping     ShippingRequest   `json:"shipping"`
	DeliveryDate *time.Time        `json:"delivery_date,omitempty"`
}

// CreateIntentRequest is the request body for POST /intents.
type CreateIntentRequest struct {
	AccountID string          `json:"account_id" binding:"required,max=100,safe_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"omitempty,currency"`
	Purpose   string          `json:"purpose" binding:"required,payment_purpose"`
	Order     *OrderRequest   `json:"order,omitempty"`
}

// ReconcileRequest is the request body for POST /settlements.
type ReconcileRequest struct {
	Reference string `json:"reference" binding:"required,max=255,safe_id"`
	AccountID string `json:"account_id" binding:"omitempty,max=100,safe_id"`
}

// WalletPaymentRequest is the request body for POST /orders/wallet-payment.
type WalletPaymentRequest struct {
	AccountID string          `json:"account_id" binding:"required,max=100,safe_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency" binding:"omitempty,currency"`
	Order     OrderRequest    `json:"order"`
}

// CashOnDeliveryRequest is the request body for POST /orders/cash-on-delivery.
type CashOnDeliveryRequest struct {
	AccountID string       `json:"account_id" binding:"required,max=100,safe_id"`
	Currency  string       `json:"currency" binding:"omitempty,currency"`
	Order     OrderRequest `json:"order"`
}

// OrderStatusRequest is the request body for POST /orders/:accountId/:orderId/status.
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,max=20"`
}

// Details converts the request into domain order details.
func (r OrderRequest) Details() domain.OrderDetails {
	items := make([]domain.LineItem, 0, len(r.LineItems))
	for _, li := range r.LineItems {
		items = append(items, domain.LineItem{
			ProductRef: li.ProductRef,
			UnitPrice:  li.UnitPrice,
			Quantity:   li.Quantity,
			Currency:   li.Currency,
		})
	}
	return domain.OrderDetails{
		LineItems: items,
		Shipping: domain.ShippingAddress{
			RecipientName: r.Shipping.RecipientName,
			Phone:         r.Shipping.Phone,
			AddressLine:   r.Shipping.AddressLine,
			City:          r.Shipping.City,
			Notes:         r.Shipping.Notes,
		},
		DeliveryDate: r.DeliveryDate,
	}
}

// ToPorts builds the service request. A purchase must carry its order; a
// refill must not.
func (r CreateIntentRequest) ToPorts() (ports.CreateIntentRequest, error) {
	req := ports.CreateIntentRequest{
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Currency:  r.Currency,
	}
	switch domain.PurposeKind(r.Purpose) {
	case domain.PurposeRefill:
		if r.Order != nil {
			return req, apperror.Validation("order is only accepted for purchase intents")
		}
		req.Purpose = domain.Refill{}
	case domain.PurposePurchase:
		if r.Order == nil {
			return req, apperror.Validation("order is required for purchase intents")
		}
		req.Purpose = domain.Purchase{Details: r.Order.Details()}
	default:
		return req, apperror.Validation("purpose must be refill or purchase")
	}
	return req, nil
}

// ToPorts builds the service request.
func (r WalletPaymentRequest) ToPorts() ports.WalletPaymentRequest {
	return ports.WalletPaymentRequest{
		AccountID: r.AccountID,
		Amount:    r.Amount,
		Currency:  r.Currency,
		Order:     r.Order.Details(),
	}
}

// ToPorts builds the service request.
func (r CashOnDeliveryRequest) ToPorts() ports.CashOnDeliveryRequest {
	return ports.CashOnDeliveryRequest{
		AccountID: r.AccountID,
		Currency:  r.Currency,
		Order:     r.Order.Details(),
	}
}

// IntentResponse is returned by POST /intents.
type IntentResponse struct {
	Reference    string `json:"reference"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// SettlementResponse is the settlement record returned by POST /settlements.
type SettlementResponse struct {
	Reference string  `json:"reference"`
	Status    string  `json:"status"`
	Kind      string  `json:"kind,omitempty"`
	TargetID  string  `json:"target_id,omitempty"`
	AccountID string  `json:"account_id,omitempty"`
	Amount    string  `json:"amount,omitempty"`
	Currency  string  `json:"currency,omitempty"`
	ClaimedAt string  `json:"claimed_at"`
	SettledAt *string `json:"settled_at,omitempty"`
}

// GatewayEventResponse acknowledges a gateway callback.
type GatewayEventResponse struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}

// WalletResponse is the response for GET /wallets/:accountId.
type WalletResponse struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
}

// TransactionResponse is one ledger entry.
type TransactionResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// TransactionListResponse wraps an account's ledger.
type TransactionListResponse struct {
	AccountID string                `json:"account_id"`
	Items     []TransactionResponse `json:"items"`
}

// LineItemResponse is one product line of an order.
type LineItemResponse struct {
	ProductRef string `json:"product_ref"`
	UnitPrice  string `json:"unit_price"`
	Quantity   int    `json:"quantity"`
	Currency   string `json:"currency"`
}

// OrderResponse is the public view of an order.
type OrderResponse struct {
	OrderID          string                 `json:"order_id"`
	AccountID        string                 `json:"account_id"`
	LineItems        []LineItemResponse     `json:"line_items"`
	TotalAmount      string                 `json:"total_amount"`
	Currency         string                 `json:"currency"`
	Shipping         domain.ShippingAddress `json:"shipping"`
	PaymentMethod    string                 `json:"payment_method"`
	Status           string                 `json:"status"`
	GatewayReference string                 `json:"gateway_reference,omitempty"`
	DeliveryDate     *string                `json:"delivery_date,omitempty"`
	CreatedAt        string                 `json:"created_at"`
	UpdatedAt        string                 `json:"updated_at"`
}

// OrderListResponse lists an account's orders, newest first, and the same
// orders grouped by status.
type OrderListResponse struct {
	Orders   []OrderResponse            `json:"orders"`
	ByStatus map[string][]OrderResponse `json:"by_status"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(domain.MinorUnitExponent)
}

// NewIntentResponse converts the service result.
func NewIntentResponse(r *ports.IntentResult) IntentResponse {
	return IntentResponse{
		Reference:    r.Reference,
		ClientSecret: r.ClientSecret,
		Status:       string(r.Status),
	}
}

// NewSettlementResponse converts a settlement record.
func NewSettlementResponse(rec *domain.SettlementRecord) SettlementResponse {
	resp := SettlementResponse{
		Reference: rec.Reference,
		Status:    string(rec.Status),
		ClaimedAt: formatTime(rec.ClaimedAt),
	}
	if rec.Outcome != nil {
		resp.Kind = string(rec.Outcome.Kind)
		resp.TargetID = rec.Outcome.TargetID
		resp.AccountID = rec.Outcome.AccountID
		resp.Amount = formatAmount(rec.Outcome.Amount)
		resp.Currency = rec.Outcome.Currency
	}
	if rec.SettledAt != nil {
		s := formatTime(*rec.SettledAt)
		resp.SettledAt = &s
	}
	return resp
}

// NewWalletResponse converts a wallet.
func NewWalletResponse(w *domain.Wallet) WalletResponse {
	return WalletResponse{
		AccountID: w.AccountID,
		Balance:   formatAmount(w.Balance),
		Currency:  w.Currency,
	}
}

// NewTransactionListResponse converts an account's ledger.
func NewTransactionListResponse(accountID string, txs []domain.Transaction) TransactionListResponse {
	items := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		items = append(items, TransactionResponse{
			ID:        t.ID,
			Kind:      string(t.Kind),
			Amount:    formatAmount(t.Amount),
			Currency:  t.Currency,
			Reference: t.Reference,
			Status:    string(t.Status),
			CreatedAt: formatTime(t.CreatedAt),
		})
	}
	return TransactionListResponse{AccountID: accountID, Items: items}
}

// NewOrderResponse converts an order.
func NewOrderResponse(o *domain.Order) OrderResponse {
	items := make([]LineItemResponse, 0, len(o.LineItems))
	for _, li := range o.LineItems {
		items = append(items, LineItemResponse{
			ProductRef: li.ProductRef,
			UnitPrice:  formatAmount(li.UnitPrice),
			Quantity:   li.Quantity,
			Currency:   li.Currency,
		})
	}
	resp := OrderResponse{
		OrderID:          o.OrderID,
		AccountID:        o.AccountID,
		LineItems:        items,
		TotalAmount:      formatAmount(o.TotalAmount),
		Currency:         o.Currency,
		Shipping:         o.Shipping,
		PaymentMethod:    string(o.PaymentMethod),
		Status:           string(o.Status),
		GatewayReference: o.GatewayReference,
		CreatedAt:        formatTime(o.CreatedAt),
		UpdatedAt:        formatTime(o.UpdatedAt),
	}
	if o.DeliveryDate != nil {
		s := formatTime(*o.DeliveryDate)
		resp.DeliveryDate = &s
	}
	return resp
}

// NewOrderListResponse converts a list of orders and groups them by status.
func NewOrderListResponse(orders []domain.Order) OrderListResponse {
	resp := OrderListResponse{
		Orders:   make([]OrderResponse, 0, len(orders)),
		ByStatus: make(map[string][]OrderResponse),
	}
	for i := range orders {
		resp.Orders = append(resp.Orders, NewOrderResponse(&orders[i]))
	}
	for status, group := range domain.GroupOrdersByStatus(orders) {
		converted := make([]OrderResponse, 0, len(group))
		for i := range group {
			converted = append(converted, NewOrderResponse(&group[i]))
		}
		resp.ByStatus[string(status)] = converted
	}
	return resp
}
