package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the state of a reference in the idempotency index.
type SettlementStatus string

const (
	SettlementStatusPending SettlementStatus = "pending"
	SettlementStatusSettled SettlementStatus = "settled"
)

// OutcomeKind says which durable effect a settlement produced.
type OutcomeKind string

const (
	OutcomeWalletCredit OutcomeKind = "wallet_credit"
	OutcomeOrderCreated OutcomeKind = "order_created"
)

// SettlementOutcome describes the effect applied for a reference.
// TargetID is the ledger transaction ID or the order ID.
type SettlementOutcome struct {
	Kind      OutcomeKind     `json:"kind"`
	TargetID  string          `json:"target_id"`
	AccountID string          `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
}

// SettlementRecord is written once per gateway reference.
type SettlementRecord struct {
	Reference string             `json:"reference"`
	Status    SettlementStatus   `json:"status"`
	Outcome   *SettlementOutcome `json:"outcome,omitempty"`
	ClaimedAt time.Time          `json:"claimed_at"`
	SettledAt *time.Time         `json:"settled_at,omitempty"`
}

// IsSettled reports whether the outcome has been recorded.
func (r *SettlementRecord) IsSettled() bool {
	return r != nil && r.Status == SettlementStatusSettled && r.Outcome != nil
}

// ClaimResult is returned by an insert-if-absent claim on a reference.
// When Claimed is false, Existing holds the record that won.
type ClaimResult struct {
	Claimed  bool
	Existing *SettlementRecord
}

// Channel identifies how a payment confirmation reached the engine.
type Channel string

const (
	ChannelClient  Channel = "client"
	ChannelWebhook Channel = "webhook"
	ChannelCLI     Channel = "cli"
)

// SettlementTime returns now in UTC at the precision the stores keep,
// so a record read back compares equal to the one returned by the writer.
func SettlementTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
