//go:build integration

package postgres

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()

	container, err := postgres.Run(t.Context(),
		"postgres:17-alpine",
		postgres.WithDatabase("settlement-test"),
		postgres.WithUsername("settlement"),
		postgres.WithPassword("pwd"),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err, "container with pg start failed")

	dsn, err := container.ConnectionString(t.Context(), "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, Migrate(dsn))

	pool, err := pgxpool.New(t.Context(), dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_ConcurrentClaimsSettleOnce(t *testing.T) {
	pool := startPostgres(t)
	tx := NewTransactor(pool)
	ledger := NewLedgerStore(pool, "AED")
	index := NewSettlementIndex(pool)

	const workers = 12
	var (
		wg      sync.WaitGroup
		claimed atomic.Int32
		records = make([]*domain.SettlementRecord, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := tx.WithinTransaction(context.Background(), func(ctx context.Context) error {
				claim, err := index.TryClaim(ctx, "pi_race")
				if err != nil {
					return err
				}
				if !claim.Claimed {
					records[i] = claim.Existing
					return nil
				}
				claimed.Add(1)
				amount := decimal.RequireFromString("50.00")
				if _, err := ledger.AppendTransaction(ctx, "acct-race", domain.Transaction{
					ID:        domain.CreditTransactionID("pi_race"),
					Kind:      domain.TransactionKindCredit,
					Amount:    amount,
					Currency:  "AED",
					Reference: "pi_race",
				}); err != nil {
					return err
				}
				rec, err := index.Record(ctx, "pi_race", domain.SettlementOutcome{
					Kind:      domain.OutcomeWalletCredit,
					TargetID:  domain.CreditTransactionID("pi_race"),
					AccountID: "acct-race",
					Amount:    amount,
					Currency:  "AED",
				})
				records[i] = rec
				return err
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), claimed.Load())
	for _, rec := range records {
		require.NotNil(t, rec)
		assert.True(t, rec.IsSettled())
		assert.Equal(t, records[0].Outcome.TargetID, rec.Outcome.TargetID)
	}

	w, err := ledger.GetOrCreate(context.Background(), "acct-race")
	require.NoError(t, err)
	assert.True(t, w.Balance.Equal(decimal.RequireFromString("50")), "balance %s", w.Balance)

	txs, err := ledger.ListTransactions(context.Background(), "acct-race")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestIntegration_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	pool := startPostgres(t)
	ledger := NewLedgerStore(pool, "AED")
	ctx := context.Background()

	_, err := ledger.AppendTransaction(ctx, "acct-debit", domain.Transaction{
		ID:       domain.CreditTransactionID("seed"),
		Kind:     domain.TransactionKindCredit,
		Amount:   decimal.RequireFromString("100"),
		Currency: "AED",
	})
	require.NoError(t, err)

	const workers = 25
	var (
		wg           sync.WaitGroup
		succeeded    atomic.Int32
		insufficient atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := ledger.AppendTransaction(ctx, "acct-debit", domain.Transaction{
				ID:       domain.DebitTransactionID(string(rune('a'+i)) + "-order"),
				Kind:     domain.TransactionKindDebit,
				Amount:   decimal.RequireFromString("10"),
				Currency: "AED",
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case apperror.Is(err, apperror.CodeInsufficientFunds):
				insufficient.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(10), succeeded.Load())
	assert.Equal(t, int32(15), insufficient.Load())

	w, err := ledger.GetOrCreate(ctx, "acct-debit")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())

	txs, err := ledger.ListTransactions(ctx, "acct-debit")
	require.NoError(t, err)
	sum := decimal.Zero
	for _, tr := range txs {
		sum = sum.Add(tr.Signed())
	}
	assert.True(t, sum.Equal(w.Balance))
}

func TestIntegration_OrderLifecycle(t *testing.T) {
	pool := startPostgres(t)
	orders := NewOrderStore(pool)
	ctx := context.Background()

	id, err := orders.Create(ctx, &domain.Order{
		AccountID: "acct-o",
		LineItems: []domain.LineItem{
			{ProductRef: "sku-1", UnitPrice: decimal.RequireFromString("12"), Quantity: 2, Currency: "AED"},
		},
		TotalAmount:   decimal.RequireFromString("24"),
		Currency:      "AED",
		Shipping:      domain.ShippingAddress{RecipientName: "A", Phone: "1", AddressLine: "L", City: "C"},
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Status:        domain.OrderStatusPending,
	})
	require.NoError(t, err)

	_, err = orders.Create(ctx, &domain.Order{OrderID: id, AccountID: "acct-o", TotalAmount: decimal.NewFromInt(1),
		Currency: "AED", PaymentMethod: domain.PaymentMethodWallet, Status: domain.OrderStatusConfirmed})
	assert.True(t, apperror.Is(err, apperror.CodeDuplicateOrder))

	o, err := orders.UpdateStatus(ctx, id, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, o.Status)

	_, err = orders.UpdateStatus(ctx, id, domain.OrderStatusPending)
	assert.True(t, apperror.Is(err, apperror.CodeInvalidStatusTransition))

	list, err := orders.ListByAccount(ctx, "acct-o")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].LineItems[0].Quantity)
}
