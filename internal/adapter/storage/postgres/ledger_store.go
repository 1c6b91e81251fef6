package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LedgerStore implements ports.LedgerStore.
type LedgerStore struct {
	pool            Pool
	defaultCurrency string
}

// NewLedgerStore creates a new LedgerStore. Lazily created wallets get defaultCurrency.
func NewLedgerStore(pool Pool, defaultCurrency string) *LedgerStore {
	return &LedgerStore{pool: pool, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

const (
	ensureWalletSQL = `INSERT INTO wallets (account_id, balance, currency, created_at, updated_at)
		VALUES ($1, 0, $2, NOW(), NOW())
		ON CONFLICT (account_id) DO NOTHING`

	selectWalletSQL = `SELECT account_id, balance, currency, created_at, updated_at
		FROM wallets WHERE account_id = $1`
)

// GetOrCreate returns the account's wallet, inserting an empty one if needed.
func (r *LedgerStore) GetOrCreate(ctx context.Context, accountID string) (*domain.Wallet, error) {
	db := conn(ctx, r.pool)
	if _, err := db.Exec(ctx, ensureWalletSQL, accountID, r.defaultCurrency); err != nil {
		return nil, fmt.Errorf("ensure wallet: %w", err)
	}
	return scanWallet(db.QueryRow(ctx, selectWalletSQL, accountID))
}

// AppendTransaction locks the wallet row, validates t against the current
// balance, then writes the entry and the new balance in one transaction.
func (r *LedgerStore) AppendTransaction(ctx context.Context, accountID string, t domain.Transaction) (*domain.Wallet, error) {
	if !t.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if t.Kind != domain.TransactionKindCredit && t.Kind != domain.TransactionKindDebit {
		return nil, fmt.Errorf("unknown transaction kind %q", t.Kind)
	}

	var wallet *domain.Wallet
	err := withinTx(ctx, r.pool, func(ctx context.Context) error {
		db := conn(ctx, r.pool)

		if _, err := db.Exec(ctx, ensureWalletSQL, accountID, r.defaultCurrency); err != nil {
			return fmt.Errorf("ensure wallet: %w", err)
		}

		w, err := scanWallet(db.QueryRow(ctx, selectWalletSQL+" FOR UPDATE", accountID))
		if err != nil {
			return fmt.Errorf("lock wallet: %w", err)
		}

		if !strings.EqualFold(t.Currency, w.Currency) {
			return apperror.ErrCurrencyMismatch(w.Currency, t.Currency)
		}
		if t.Kind == domain.TransactionKindDebit && !w.CanDebit(t.Amount) {
			return apperror.ErrInsufficientFunds()
		}

		now := domain.SettlementTime()
		if t.CreatedAt.IsZero() {
			t.CreatedAt = now
		}

		_, err = db.Exec(ctx,
			`INSERT INTO wallet_transactions (id, account_id, kind, amount, currency, reference, status, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, accountID, string(t.Kind), t.Amount, w.Currency,
			nullIfEmpty(t.Reference), string(domain.TransactionStatusCompleted), t.CreatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return apperror.ErrDuplicateTransaction(t.ID)
			}
			return fmt.Errorf("insert wallet transaction: %w", err)
		}

		w.Balance = w.Balance.Add(t.Signed())
		w.UpdatedAt = now
		if _, err := db.Exec(ctx,
			`UPDATE wallets SET balance = $1, updated_at = $2 WHERE account_id = $3`,
			w.Balance, w.UpdatedAt, accountID,
		); err != nil {
			return fmt.Errorf("update wallet balance: %w", err)
		}

		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// ListTransactions returns the account's ledger oldest first.
func (r *LedgerStore) ListTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, account_id, kind, amount, currency, reference, status, created_at
		 FROM wallet_transactions WHERE account_id = $1 ORDER BY seq`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("list wallet transactions: %w", err)
	}

	txs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Transaction, error) {
		var (
			t         domain.Transaction
			reference *string
		)
		err := row.Scan(&t.ID, &t.AccountID, &t.Kind, &t.Amount, &t.Currency, &reference, &t.Status, &t.CreatedAt)
		t.Reference = derefString(reference)
		t.CreatedAt = t.CreatedAt.UTC()
		return t, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan wallet transactions: %w", err)
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return txs, nil
}

func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	if err := row.Scan(&w.AccountID, &w.Balance, &w.Currency, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
