package memory

import (
	"context"
	"fmt"

	"settlement-core/internal/core/domain"
)

// SettlementIndex implements ports.IdempotencyIndex.
type SettlementIndex struct {
	db *DB
}

// NewSettlementIndex creates an idempotency index over db.
func NewSettlementIndex(db *DB) *SettlementIndex {
	return &SettlementIndex{db: db}
}

// TryClaim inserts a pending record unless one exists for reference.
func (s *SettlementIndex) TryClaim(ctx context.Context, reference string) (domain.ClaimResult, error) {
	u, release := s.db.acquire(ctx)
	defer release()

	if existing, ok := s.db.settlements[reference]; ok {
		return domain.ClaimResult{Existing: cloneRecord(existing)}, nil
	}

	s.db.settlements[reference] = &domain.SettlementRecord{
		Reference: reference,
		Status:    domain.SettlementStatusPending,
		ClaimedAt: domain.SettlementTime(),
	}
	u.onRollback(func() { delete(s.db.settlements, reference) })

	return domain.ClaimResult{Claimed: true}, nil
}

// Record settles a pending claim with outcome.
func (s *SettlementIndex) Record(ctx context.Context, reference string, outcome domain.SettlementOutcome) (*domain.SettlementRecord, error) {
	u, release := s.db.acquire(ctx)
	defer release()

	rec, ok := s.db.settlements[reference]
	if !ok {
		return nil, fmt.Errorf("recording settlement %s: no claim", reference)
	}
	if rec.Status != domain.SettlementStatusPending {
		return nil, fmt.Errorf("recording settlement %s: already %s", reference, rec.Status)
	}

	settledAt := domain.SettlementTime()
	rec.Status = domain.SettlementStatusSettled
	rec.Outcome = &outcome
	rec.SettledAt = &settledAt
	u.onRollback(func() {
		rec.Status = domain.SettlementStatusPending
		rec.Outcome = nil
		rec.SettledAt = nil
	})

	return cloneRecord(rec), nil
}

// Get returns the record for reference, or nil.
func (s *SettlementIndex) Get(ctx context.Context, reference string) (*domain.SettlementRecord, error) {
	_, release := s.db.acquire(ctx)
	defer release()

	rec, ok := s.db.settlements[reference]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func cloneRecord(r *domain.SettlementRecord) *domain.SettlementRecord {
	c := *r
	if r.Outcome != nil {
		o := *r.Outcome
		c.Outcome = &o
	}
	if r.SettledAt != nil {
		t := *r.SettledAt
		c.SettledAt = &t
	}
	return &c
}
