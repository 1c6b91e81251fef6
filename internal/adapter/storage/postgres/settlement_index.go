package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"settlement-core/internal/core/domain"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SettlementIndex implements ports.IdempotencyIndex on the settlements table.
//
// Inside a transaction, a second TryClaim for the same reference blocks on the
// primary key until the first transaction ends. It then either sees the
// settled row or, after a rollback, wins the claim itself.
type SettlementIndex struct {
	pool Pool
}

// NewSettlementIndex creates a new SettlementIndex.
func NewSettlementIndex(pool Pool) *SettlementIndex {
	return &SettlementIndex{pool: pool}
}

// TryClaim inserts a pending row for reference unless one exists.
func (r *SettlementIndex) TryClaim(ctx context.Context, reference string) (domain.ClaimResult, error) {
	db := conn(ctx, r.pool)

	tag, err := db.Exec(ctx,
		`INSERT INTO settlements (reference, status, claimed_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (reference) DO NOTHING`,
		reference, string(domain.SettlementStatusPending), domain.SettlementTime(),
	)
	if err != nil {
		return domain.ClaimResult{}, fmt.Errorf("claim settlement: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return domain.ClaimResult{Claimed: true}, nil
	}

	existing, err := r.Get(ctx, reference)
	if err != nil {
		return domain.ClaimResult{}, err
	}
	if existing == nil {
		return domain.ClaimResult{}, fmt.Errorf("claim settlement %s: conflicting row vanished", reference)
	}
	return domain.ClaimResult{Existing: existing}, nil
}

// Record finalizes the pending claim for reference.
func (r *SettlementIndex) Record(ctx context.Context, reference string, outcome domain.SettlementOutcome) (*domain.SettlementRecord, error) {
	settledAt := domain.SettlementTime()

	var claimedAt time.Time
	err := conn(ctx, r.pool).QueryRow(ctx,
		`UPDATE settlements
		 SET status = $2, outcome_kind = $3, target_id = $4, account_id = $5, amount = $6, currency = $7, settled_at = $8
		 WHERE reference = $1 AND status = $9
		 RETURNING claimed_at`,
		reference, string(domain.SettlementStatusSettled), string(outcome.Kind), outcome.TargetID,
		outcome.AccountID, outcome.Amount, outcome.Currency, settledAt, string(domain.SettlementStatusPending),
	).Scan(&claimedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("recording settlement %s: no pending claim", reference)
		}
		return nil, fmt.Errorf("record settlement: %w", err)
	}

	return &domain.SettlementRecord{
		Reference: reference,
		Status:    domain.SettlementStatusSettled,
		Outcome:   &outcome,
		ClaimedAt: claimedAt.UTC(),
		SettledAt: &settledAt,
	}, nil
}

// Get returns the record for reference, or nil when absent.
func (r *SettlementIndex) Get(ctx context.Context, reference string) (*domain.SettlementRecord, error) {
	var (
		rec                                 domain.SettlementRecord
		status                              string
		kind, targetID, accountID, currency *string
		amount                              decimal.NullDecimal
		settledAt                           *time.Time
	)
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT reference, status, outcome_kind, target_id, account_id, amount, currency, claimed_at, settled_at
		 FROM settlements WHERE reference = $1`,
		reference,
	).Scan(&rec.Reference, &status, &kind, &targetID, &accountID, &amount, &currency, &rec.ClaimedAt, &settledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get settlement: %w", err)
	}

	rec.Status = domain.SettlementStatus(status)
	rec.ClaimedAt = rec.ClaimedAt.UTC()
	if kind != nil {
		rec.Outcome = &domain.SettlementOutcome{
			Kind:      domain.OutcomeKind(*kind),
			TargetID:  derefString(targetID),
			AccountID: derefString(accountID),
			Amount:    amount.Decimal,
			Currency:  derefString(currency),
		}
	}
	if settledAt != nil {
		t := settledAt.UTC()
		rec.SettledAt = &t
	}
	return &rec, nil
}
