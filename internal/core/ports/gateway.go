package ports

import (
	"context"

	"settlement-core/internal/core/domain"
)

// CreateIntentParams is what the gateway needs to open a payment intent.
type CreateIntentParams struct {
	AmountMinor    int64
	Currency       string
	Metadata       map[string]string
	IdempotencyKey string
}

// IntentGateway is the boundary to the external payment gateway.
type IntentGateway interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*domain.Intent, error)
	RetrieveIntent(ctx context.Context, reference string) (*domain.Intent, error)
	// VerifyCallback authenticates a raw callback body and decodes it.
	VerifyCallback(payload []byte, signatureHeader string) (*domain.GatewayEvent, error)
}
