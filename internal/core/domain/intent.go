package domain

import "time"

// IntentStatus mirrors the gateway's payment intent lifecycle.
type IntentStatus string

const (
	IntentStatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentStatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentStatusProcessing            IntentStatus = "processing"
	IntentStatusSucceeded             IntentStatus = "succeeded"
	IntentStatusCanceled              IntentStatus = "canceled"
	IntentStatusFailed                IntentStatus = "failed"
)

// Intent is the gateway's view of a payment. It is never persisted locally;
// the gateway is authoritative for amount and status.
type Intent struct {
	Reference    string            `json:"id"`
	ClientSecret string            `json:"client_secret,omitempty"`
	Status       IntentStatus      `json:"status"`
	AmountMinor  int64             `json:"amount"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// Succeeded reports whether the payment was captured.
func (i *Intent) Succeeded() bool {
	return i.Status == IntentStatusSucceeded
}

// Gateway event types this service acts on.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// GatewayEvent is a signature-verified callback from the gateway.
type GatewayEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Intent    Intent    `json:"intent"`
}
