package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is an account's stored-value balance together with its ledger.
type Wallet struct {
	AccountID    string          `json:"account_id"`
	Balance      decimal.Decimal `json:"balance"`
	Currency     string          `json:"currency"`
	Transactions []Transaction   `json:"transactions,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// LedgerSum returns the signed sum of the wallet's transactions.
// For a consistent wallet it equals Balance.
func (w *Wallet) LedgerSum() decimal.Decimal {
	sum := decimal.Zero
	for _, t := range w.Transactions {
		sum = sum.Add(t.Signed())
	}
	return sum
}

// CanDebit reports whether amount can be taken without going negative.
func (w *Wallet) CanDebit(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
