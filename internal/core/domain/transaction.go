package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind is the direction of a ledger entry.
type TransactionKind string

const (
	TransactionKindCredit TransactionKind = "credit"
	TransactionKindDebit  TransactionKind = "debit"
)

// TransactionStatus is the lifecycle state of a ledger entry. Entries are only
// ever appended once they are final.
type TransactionStatus string

const TransactionStatusCompleted TransactionStatus = "completed"

// Transaction is an immutable, append-only wallet ledger entry.
type Transaction struct {
	ID        string            `json:"id"`
	AccountID string            `json:"account_id"`
	Kind      TransactionKind   `json:"kind"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Reference string            `json:"reference,omitempty"`
	Status    TransactionStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// Signed returns the amount with the sign of its effect on the balance.
func (t Transaction) Signed() decimal.Decimal {
	if t.Kind == TransactionKindDebit {
		return t.Amount.Neg()
	}
	return t.Amount
}

// CreditTransactionID derives the ledger ID of a payment-originated credit.
func CreditTransactionID(reference string) string {
	return "credit:" + reference
}

// DebitTransactionID derives the ledger ID of a wallet payment for an order.
func DebitTransactionID(orderID string) string {
	return "debit:" + orderID
}
