// Package memory is the in-process storage backend. It backs local runs and
// tests, and gives the same atomicity guarantees as the postgres backend by
// serializing every unit of work behind one lock.
package memory

import (
	"context"
	"sync"

	"settlement-core/internal/core/domain"
)

// DB is the shared state behind the memory stores.
type DB struct {
	mu sync.Mutex

	wallets     map[string]*domain.Wallet
	txIDs       map[string]struct{}
	orders      map[string]*domain.Order
	orderSeq    map[string]int64
	nextSeq     int64
	settlements map[string]*domain.SettlementRecord
}

// NewDB creates an empty database.
func NewDB() *DB {
	return &DB{
		wallets:     make(map[string]*domain.Wallet),
		txIDs:       make(map[string]struct{}),
		orders:      make(map[string]*domain.Order),
		orderSeq:    make(map[string]int64),
		settlements: make(map[string]*domain.SettlementRecord),
	}
}

type unitKey struct{}

// unit is an open unit of work. It owns db.mu until it finishes.
type unit struct {
	db   *DB
	undo []func()
}

func (u *unit) onRollback(fn func()) {
	if u != nil {
		u.undo = append(u.undo, fn)
	}
}

func (u *unit) rollback() {
	for i := len(u.undo) - 1; i >= 0; i-- {
		u.undo[i]()
	}
	u.undo = nil
}

func unitFrom(ctx context.Context, db *DB) *unit {
	u, ok := ctx.Value(unitKey{}).(*unit)
	if ok && u.db == db {
		return u
	}
	return nil
}

// acquire returns the unit carried by ctx, or locks db for a single
// statement. release must always be called.
func (db *DB) acquire(ctx context.Context) (u *unit, release func()) {
	if u := unitFrom(ctx, db); u != nil {
		return u, func() {}
	}
	db.mu.Lock()
	return nil, db.mu.Unlock
}

// Transactor implements ports.Transactor for the memory stores.
type Transactor struct {
	db *DB
}

// NewTransactor creates a Transactor over db.
func NewTransactor(db *DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction holds the store lock for the duration of fn and undoes
// every mutation made through ctx if fn fails or panics.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if unitFrom(ctx, t.db) != nil {
		return fn(ctx)
	}

	t.db.mu.Lock()
	defer t.db.mu.Unlock()

	u := &unit{db: t.db}
	defer func() {
		if p := recover(); p != nil {
			u.rollback()
			panic(p)
		}
	}()

	if err = fn(context.WithValue(ctx, unitKey{}, u)); err != nil {
		u.rollback()
	}
	return err
}
