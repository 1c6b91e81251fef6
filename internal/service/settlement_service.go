package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const settlementCacheTTL = 24 * time.Hour

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	ledger     ports.LedgerStore
	orders     ports.OrderStore
	index      ports.IdempotencyIndex
	cache      ports.SettlementCache // optional
	gateway    ports.IntentGateway
	transactor ports.Transactor
	log        zerolog.Logger
}

// NewSettlementService creates a new SettlementServiceImpl. cache may be nil.
func NewSettlementService(
	ledger ports.LedgerStore,
	orders ports.OrderStore,
	index ports.IdempotencyIndex,
	cache ports.SettlementCache,
	gateway ports.IntentGateway,
	transactor ports.Transactor,
	log zerolog.Logger,
) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		ledger:     ledger,
		orders:     orders,
		index:      index,
		cache:      cache,
		gateway:    gateway,
		transactor: transactor,
		log:        log,
	}
}

// CreateIntent validates the payment, fixes its purpose into intent metadata
// and opens the intent at the gateway.
func (s *SettlementServiceImpl) CreateIntent(ctx context.Context, req ports.CreateIntentRequest) (*ports.IntentResult, error) {
	if !domain.IsValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, apperror.Validation("account_id is required")
	}

	currency := normalizeCurrency(req.Currency)
	switch p := req.Purpose.(type) {
	case domain.Refill:
		wallet, err := s.ledger.GetOrCreate(ctx, accountID)
		if err != nil {
			return nil, toAppError(err)
		}
		if currency == "" {
			currency = wallet.Currency
		} else if currency != wallet.Currency {
			return nil, apperror.ErrCurrencyMismatch(wallet.Currency, currency)
		}
	case domain.Purchase:
		var err error
		if currency, err = validateOrderDetails(p.Details, currency); err != nil {
			return nil, err
		}
		if total := p.Details.LineItemsTotal(); total.IsPositive() && !total.Equal(req.Amount) {
			return nil, apperror.ErrInvalidOrderAmount()
		}
		if currency == "" {
			return nil, apperror.Validation("currency is required")
		}
	default:
		return nil, apperror.Validation("payment purpose is required")
	}

	meta, err := domain.EncodeMetadata(accountID, req.Purpose)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	minor, err := domain.ToMinorUnits(req.Amount)
	if err != nil {
		return nil, apperror.ErrInvalidAmount()
	}

	intent, err := s.gateway.CreateIntent(ctx, ports.CreateIntentParams{
		AmountMinor:    minor,
		Currency:       currency,
		Metadata:       meta,
		IdempotencyKey: "intent:" + uuid.NewString(),
	})
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Intent creation failed")
		return nil, toAppError(err)
	}

	s.log.Info().
		Str("reference", intent.Reference).
		Str("account_id", accountID).
		Str("purpose", string(req.Purpose.Kind())).
		Str("amount", req.Amount.StringFixed(domain.MinorUnitExponent)).
		Str("currency", currency).
		Msg("Payment intent created")

	return &ports.IntentResult{
		Reference:    intent.Reference,
		ClientSecret: intent.ClientSecret,
		Status:       intent.Status,
	}, nil
}

// Reconcile settles a payment the client reports as confirmed. The gateway is
// asked for the intent; the client's word is never trusted.
func (s *SettlementServiceImpl) Reconcile(ctx context.Context, req ports.ReconcileRequest) (*domain.SettlementRecord, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, apperror.Validation("reference is required")
	}
	accountID := strings.TrimSpace(req.AccountID)
	channel := req.Channel
	if channel == "" {
		channel = domain.ChannelClient
	}

	rec, err := s.lookup(ctx, reference)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		if accountID != "" && rec.Outcome.AccountID != accountID {
			return nil, apperror.ErrNotFound("payment intent")
		}
		return rec, nil
	}

	intent, err := s.gateway.RetrieveIntent(ctx, reference)
	if err != nil {
		s.log.Warn().Err(err).Str("reference", reference).Str("channel", string(channel)).Msg("Intent lookup failed")
		return nil, toAppError(err)
	}
	if accountID != "" {
		owner, _, err := domain.DecodeMetadata(intent.Metadata)
		// Undecodable metadata is reported by settle.
		if err == nil && owner != accountID {
			return nil, apperror.ErrNotFound("payment intent")
		}
	}

	return s.settle(ctx, intent, channel)
}

// ReconcileEvent settles a payment from a verified gateway callback. Event
// types other than success and failure are ignored and return nil.
func (s *SettlementServiceImpl) ReconcileEvent(ctx context.Context, event *domain.GatewayEvent) (*domain.SettlementRecord, error) {
	switch event.Type {
	case domain.EventPaymentSucceeded, domain.EventPaymentFailed:
	default:
		s.log.Debug().Str("event_id", event.ID).Str("type", event.Type).Msg("Ignoring gateway event")
		return nil, nil
	}

	reference := event.Intent.Reference
	if reference == "" {
		return nil, apperror.Validation("gateway event carries no intent id")
	}

	rec, err := s.lookup(ctx, reference)
	if err != nil || rec != nil {
		return rec, err
	}

	intent := event.Intent
	return s.settle(ctx, &intent, domain.ChannelWebhook)
}

// lookup is the read-only fast path: cache first, then the index.
// It returns nil when the reference has not been settled.
func (s *SettlementServiceImpl) lookup(ctx context.Context, reference string) (*domain.SettlementRecord, error) {
	if s.cache != nil {
		rec, err := s.cache.Get(ctx, reference)
		if err != nil {
			s.log.Warn().Err(err).Str("reference", reference).Msg("settlement cache read failed, falling through to index")
		} else if rec.IsSettled() {
			return rec, nil
		}
	}

	rec, err := s.index.Get(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("settlement index lookup: %w", err))
	}
	if rec == nil {
		return nil, nil
	}
	if !rec.IsSettled() {
		return nil, apperror.ErrSettlementInProgress()
	}
	s.remember(ctx, rec)
	return rec, nil
}

// settle applies intent exactly once. Claim, mutation and record share one
// unit of work, so a failure leaves the reference unclaimed and retryable.
func (s *SettlementServiceImpl) settle(ctx context.Context, intent *domain.Intent, channel domain.Channel) (*domain.SettlementRecord, error) {
	logger := s.log.With().Str("reference", intent.Reference).Str("channel", string(channel)).Logger()

	if !intent.Succeeded() {
		logger.Info().Str("status", string(intent.Status)).Msg("Payment not completed, nothing to settle")
		return nil, apperror.ErrPaymentNotCompleted(string(intent.Status))
	}

	accountID, purpose, err := domain.DecodeMetadata(intent.Metadata)
	if err != nil {
		logger.Error().Err(err).Msg("Undecodable intent metadata")
		return nil, apperror.ErrInvalidIntentMetadata(err.Error())
	}

	amount := domain.FromMinorUnits(intent.AmountMinor)
	currency := normalizeCurrency(intent.Currency)

	var (
		rec     *domain.SettlementRecord
		applied bool
	)
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		claim, err := s.index.TryClaim(ctx, intent.Reference)
		if err != nil {
			return fmt.Errorf("claim: %w", err)
		}
		if !claim.Claimed {
			rec = claim.Existing
			return nil
		}

		var outcome domain.SettlementOutcome
		switch p := purpose.(type) {
		case domain.Refill:
			outcome, err = s.applyRefill(ctx, intent.Reference, accountID, amount, currency)
		case domain.Purchase:
			outcome, err = s.applyPurchase(ctx, intent.Reference, accountID, p.Details, amount, currency)
		default:
			err = apperror.ErrInvalidIntentMetadata(fmt.Sprintf("unsupported purpose %T", purpose))
		}
		if err != nil {
			return err
		}

		rec, err = s.index.Record(ctx, intent.Reference, outcome)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		applied = true
		return nil
	})
	if err != nil {
		logger.Error().Err(err).Str("account_id", accountID).Msg("Settlement failed")
		return nil, toAppError(err)
	}
	if !rec.IsSettled() {
		return nil, apperror.ErrSettlementInProgress()
	}

	if applied {
		s.remember(ctx, rec)
		logger.Info().
			Str("account_id", accountID).
			Str("outcome", string(rec.Outcome.Kind)).
			Str("target_id", rec.Outcome.TargetID).
			Str("amount", rec.Outcome.Amount.StringFixed(domain.MinorUnitExponent)).
			Msg("settlement applied")
	} else {
		logger.Debug().Msg("Reference already settled")
	}
	return rec, nil
}

func (s *SettlementServiceImpl) applyRefill(ctx context.Context, reference, accountID string, amount decimal.Decimal, currency string) (domain.SettlementOutcome, error) {
	if !amount.IsPositive() {
		return domain.SettlementOutcome{}, apperror.ErrInvalidAmount()
	}
	txID := domain.CreditTransactionID(reference)
	wallet, err := s.ledger.AppendTransaction(ctx, accountID, domain.Transaction{
		ID:        txID,
		AccountID: accountID,
		Kind:      domain.TransactionKindCredit,
		Amount:    amount,
		Currency:  currency,
		Reference: reference,
	})
	if err != nil {
		return domain.SettlementOutcome{}, err
	}
	return domain.SettlementOutcome{
		Kind:      domain.OutcomeWalletCredit,
		TargetID:  txID,
		AccountID: accountID,
		Amount:    amount,
		Currency:  wallet.Currency,
	}, nil
}

// applyPurchase creates the order for the captured amount. Line items that
// sum to anything else reject the settlement.
func (s *SettlementServiceImpl) applyPurchase(ctx context.Context, reference, accountID string, details domain.OrderDetails, amount decimal.Decimal, currency string) (domain.SettlementOutcome, error) {
	total := details.LineItemsTotal()
	if len(details.LineItems) == 0 || !total.IsPositive() {
		total = amount
	} else if !total.Equal(amount) {
		s.log.Warn().
			Str("security_event", "captured_amount_mismatch").
			Str("reference", reference).
			Str("account_id", accountID).
			Str("captured", amount.StringFixed(domain.MinorUnitExponent)).
			Str("line_items_total", total.String()).
			Msg("Purchase total does not match captured amount, refusing to create order")
		return domain.SettlementOutcome{}, apperror.ErrInvalidOrderAmount()
	}
	if !domain.IsValidAmount(total) {
		return domain.SettlementOutcome{}, apperror.ErrInvalidOrderAmount()
	}
	total = total.Round(domain.MinorUnitExponent)

	order := &domain.Order{
		AccountID:        accountID,
		LineItems:        details.LineItems,
		TotalAmount:      total,
		Currency:         currency,
		Shipping:         details.Shipping,
		PaymentMethod:    domain.PaymentMethodCard,
		Status:           domain.OrderStatusConfirmed,
		GatewayReference: reference,
		DeliveryDate:     details.DeliveryDate,
	}
	orderID, err := s.orders.Create(ctx, order)
	if err != nil {
		return domain.SettlementOutcome{}, err
	}
	return domain.SettlementOutcome{
		Kind:      domain.OutcomeOrderCreated,
		TargetID:  orderID,
		AccountID: accountID,
		Amount:    total,
		Currency:  currency,
	}, nil
}

// PayWithWallet debits the wallet and creates the order in one unit of work.
func (s *SettlementServiceImpl) PayWithWallet(ctx context.Context, req ports.WalletPaymentRequest) (*domain.Order, error) {
	if !domain.IsValidAmount(req.Amount) {
		return nil, apperror.ErrInvalidAmount()
	}
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, apperror.Validation("account_id is required")
	}
	if total := req.Order.LineItemsTotal(); total.IsPositive() && !total.Equal(req.Amount) {
		return nil, apperror.ErrInvalidOrderAmount()
	}

	currency, err := validateOrderDetails(req.Order, normalizeCurrency(req.Currency))
	if err != nil {
		return nil, err
	}
	if currency == "" {
		wallet, err := s.ledger.GetOrCreate(ctx, accountID)
		if err != nil {
			return nil, toAppError(err)
		}
		currency = wallet.Currency
	}

	order := &domain.Order{
		OrderID:       uuid.NewString(),
		AccountID:     accountID,
		LineItems:     req.Order.LineItems,
		TotalAmount:   req.Amount.Round(domain.MinorUnitExponent),
		Currency:      currency,
		Shipping:      req.Order.Shipping,
		PaymentMethod: domain.PaymentMethodWallet,
		Status:        domain.OrderStatusConfirmed,
		DeliveryDate:  req.Order.DeliveryDate,
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.ledger.AppendTransaction(ctx, accountID, domain.Transaction{
			ID:        domain.DebitTransactionID(order.OrderID),
			AccountID: accountID,
			Kind:      domain.TransactionKindDebit,
			Amount:    order.TotalAmount,
			Currency:  currency,
			Reference: order.OrderID,
		}); err != nil {
			return err
		}
		_, err := s.orders.Create(ctx, order)
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("Wallet payment rejected")
		return nil, toAppError(err)
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("order_id", order.OrderID).
		Str("amount", order.TotalAmount.StringFixed(domain.MinorUnitExponent)).
		Msg("Wallet payment completed")
	return order, nil
}

// PayCashOnDelivery records an order paid at the door. The ledger is untouched.
func (s *SettlementServiceImpl) PayCashOnDelivery(ctx context.Context, req ports.CashOnDeliveryRequest) (*domain.Order, error) {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return nil, apperror.Validation("account_id is required")
	}
	total := req.Order.LineItemsTotal()
	if !domain.IsValidAmount(total) {
		return nil, apperror.ErrInvalidOrderAmount()
	}

	currency, err := validateOrderDetails(req.Order, normalizeCurrency(req.Currency))
	if err != nil {
		return nil, err
	}
	if currency == "" {
		return nil, apperror.Validation("currency is required")
	}

	order := &domain.Order{
		AccountID:     accountID,
		LineItems:     req.Order.LineItems,
		TotalAmount:   total.Round(domain.MinorUnitExponent),
		Currency:      currency,
		Shipping:      req.Order.Shipping,
		PaymentMethod: domain.PaymentMethodCashOnDelivery,
		Status:        domain.OrderStatusConfirmed,
		DeliveryDate:  req.Order.DeliveryDate,
	}
	if _, err := s.orders.Create(ctx, order); err != nil {
		return nil, toAppError(err)
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("order_id", order.OrderID).
		Str("amount", order.TotalAmount.StringFixed(domain.MinorUnitExponent)).
		Msg("Cash-on-delivery order placed")
	return order, nil
}

// AdvanceOrder moves an order along its delivery lifecycle. An empty
// accountID skips the ownership check (operator use).
func (s *SettlementServiceImpl) AdvanceOrder(ctx context.Context, accountID, orderID string, status domain.OrderStatus) (*domain.Order, error) {
	if !status.IsValid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown order status %q", status))
	}
	if accountID != "" {
		current, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return nil, toAppError(err)
		}
		if current.AccountID != accountID {
			return nil, apperror.ErrNotFound("Order")
		}
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, toAppError(err)
	}

	s.log.Info().
		Str("order_id", orderID).
		Str("status", string(order.Status)).
		Msg("Order status updated")
	return order, nil
}

func (s *SettlementServiceImpl) remember(ctx context.Context, rec *domain.SettlementRecord) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, rec, settlementCacheTTL); err != nil {
		s.log.Warn().Err(err).Str("reference", rec.Reference).Msg("settlement cache write failed")
	}
}

// validateOrderDetails checks the shipping address and reconciles the line
// item currency with the requested one. It returns the currency to use,
// which is empty when neither side names one.
func validateOrderDetails(details domain.OrderDetails, currency string) (string, error) {
	if err := details.Shipping.Validate(); err != nil {
		return "", apperror.Validation(err.Error())
	}
	for _, item := range details.LineItems {
		if item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			return "", apperror.ErrInvalidOrderAmount()
		}
	}

	itemCurrency, ok := details.CurrencyOf()
	if !ok {
		return "", apperror.Validation("line items must share one currency")
	}
	itemCurrency = normalizeCurrency(itemCurrency)
	switch {
	case itemCurrency == "":
		return currency, nil
	case currency == "":
		return itemCurrency, nil
	case itemCurrency != currency:
		return "", apperror.ErrCurrencyMismatch(currency, itemCurrency)
	default:
		return currency, nil
	}
}

func normalizeCurrency(c string) string {
	return strings.ToUpper(strings.TrimSpace(c))
}

// toAppError passes AppErrors through and hides everything else behind SYS_001.
func toAppError(err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperror.InternalError(err)
}
