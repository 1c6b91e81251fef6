package memory

import (
	"context"
	"fmt"
	"strings"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"
)

// LedgerStore implements ports.LedgerStore.
type LedgerStore struct {
	db              *DB
	defaultCurrency string
}

// NewLedgerStore creates a ledger store. Wallets created lazily get defaultCurrency.
func NewLedgerStore(db *DB, defaultCurrency string) *LedgerStore {
	return &LedgerStore{db: db, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// GetOrCreate returns the account's wallet, creating it with a zero balance.
func (s *LedgerStore) GetOrCreate(ctx context.Context, accountID string) (*domain.Wallet, error) {
	u, release := s.db.acquire(ctx)
	defer release()

	return walletView(s.getOrCreate(u, accountID)), nil
}

func (s *LedgerStore) getOrCreate(u *unit, accountID string) *domain.Wallet {
	if w, ok := s.db.wallets[accountID]; ok {
		return w
	}
	now := domain.SettlementTime()
	w := &domain.Wallet{
		AccountID: accountID,
		Currency:  s.defaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.db.wallets[accountID] = w
	u.onRollback(func() { delete(s.db.wallets, accountID) })
	return w
}

// AppendTransaction applies t to the wallet balance and appends it to the log.
func (s *LedgerStore) AppendTransaction(ctx context.Context, accountID string, t domain.Transaction) (*domain.Wallet, error) {
	if !t.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if t.Kind != domain.TransactionKindCredit && t.Kind != domain.TransactionKindDebit {
		return nil, fmt.Errorf("unknown transaction kind %q", t.Kind)
	}

	u, release := s.db.acquire(ctx)
	defer release()

	if _, dup := s.db.txIDs[t.ID]; dup {
		return nil, apperror.ErrDuplicateTransaction(t.ID)
	}

	w := s.getOrCreate(u, accountID)
	if !strings.EqualFold(t.Currency, w.Currency) {
		return nil, apperror.ErrCurrencyMismatch(w.Currency, t.Currency)
	}
	if t.Kind == domain.TransactionKindDebit && !w.CanDebit(t.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	prevBalance, prevUpdated, prevLen := w.Balance, w.UpdatedAt, len(w.Transactions)

	now := domain.SettlementTime()
	t.AccountID = accountID
	t.Currency = w.Currency
	t.Status = domain.TransactionStatusCompleted
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}

	w.Transactions = append(w.Transactions, t)
	w.Balance = w.Balance.Add(t.Signed())
	w.UpdatedAt = now
	s.db.txIDs[t.ID] = struct{}{}

	u.onRollback(func() {
		w.Transactions = w.Transactions[:prevLen]
		w.Balance = prevBalance
		w.UpdatedAt = prevUpdated
		delete(s.db.txIDs, t.ID)
	})

	return walletView(w), nil
}

// ListTransactions returns the wallet log oldest first. Unknown accounts have an empty log.
func (s *LedgerStore) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	_, release := s.db.acquire(ctx)
	defer release()

	w, ok := s.db.wallets[accountID]
	if !ok {
		return []domain.Transaction{}, nil
	}
	out := make([]domain.Transaction, len(w.Transactions))
	copy(out, w.Transactions)
	return out, nil
}

// walletView copies the wallet header. The log is read through ListTransactions.
func walletView(w *domain.Wallet) *domain.Wallet {
	return &domain.Wallet{
		AccountID: w.AccountID,
		Balance:   w.Balance,
		Currency:  w.Currency,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}
