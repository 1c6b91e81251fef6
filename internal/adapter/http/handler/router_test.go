package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"settlement-core/config"
	"settlement-core/internal/adapter/gateway"
	"settlement-core/internal/adapter/http/handler"
	"settlement-core/internal/adapter/storage/memory"
	redisStore "settlement-core/internal/adapter/storage/redis"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGateway is an in-process stand-in for the payment gateway API.
type fakeGateway struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*domain.Intent
}

func (f *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
		var body struct {
			Amount   int64             `json:"amount"`
			Currency string            `json:"currency"`
			Metadata map[string]string `json:"metadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.seq++
		id := fmt.Sprintf("pi_test_%d", f.seq)
		f.intents[id] = &domain.Intent{
			Reference:    id,
			ClientSecret: id + "_secret",
			Status:       domain.IntentStatusRequiresPaymentMethod,
			AmountMinor:  body.Amount,
			Currency:     body.Currency,
			Metadata:     body.Metadata,
		}
		_ = json.NewEncoder(w).Encode(f.intents[id])
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payment_intents/"):
		intent, ok := f.intents[strings.TrimPrefix(r.URL.Path, "/v1/payment_intents/")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"No such payment_intent"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(intent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeGateway) succeed(id string) domain.Intent {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intents[id].Status = domain.IntentStatusSucceeded
	return *f.intents[id]
}

type stack struct {
	router *gin.Engine
	gw     *fakeGateway
	client *gateway.Client
	tokens *service.JWTTokenService
	audit  *memory.AuditStore
	redis  *miniredis.Miniredis
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := zerolog.Nop()

	fake := &fakeGateway{intents: make(map[string]*domain.Intent)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	sigSvc := service.NewHMACSignatureService()
	client := gateway.NewClient(config.GatewayConfig{
		BaseURL:          srv.URL,
		APIKey:           "sk_test",
		WebhookSecret:    "whsec_test",
		Timeout:          2 * time.Second,
		WebhookTolerance: 5 * time.Minute,
	}, sigSvc, log)

	db := memory.NewDB()
	ledger := memory.NewLedgerStore(db, "AED")
	orders := memory.NewOrderStore(db)
	auditStore := memory.NewAuditStore()
	tokens := service.NewJWTTokenService("test-secret", time.Hour, "sessions")

	settlementSvc := service.NewSettlementService(
		ledger, orders, memory.NewSettlementIndex(db),
		redisStore.NewSettlementCache(rdb), client, memory.NewTransactor(db), log,
	)

	router := handler.SetupRouter(handler.RouterDeps{
		SettlementSvc:  settlementSvc,
		QuerySvc:       service.NewQueryService(ledger, orders),
		Gateway:        client,
		EventStore:     redisStore.NewEventStore(rdb),
		TokenSvc:       tokens,
		RateLimitStore: redisStore.NewRateLimitStore(rdb),
		HealthCheckers: []ports.HealthChecker{redisStore.NewHealthCheck(rdb)},
		AuditSvc:       service.NewAuditService(auditStore, log),
		Logger:         log,
	})

	return &stack{router: router, gw: fake, client: client, tokens: tokens, audit: auditStore, redis: mr}
}

func (s *stack) token(t *testing.T, accountID string) string {
	t.Helper()
	tok, _, err := s.tokens.Generate(accountID)
	require.NoError(t, err)
	return tok
}

func (s *stack) call(t *testing.T, method, path, token string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var raw []byte
	if body != nil {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (s *stack) deliver(t *testing.T, eventID string, intent domain.Intent, sign bool) int {
	t.Helper()
	payload, err := json.Marshal(domain.GatewayEvent{
		ID:        eventID,
		Type:      domain.EventPaymentSucceeded,
		CreatedAt: time.Now().UTC(),
		Intent:    intent,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/gateway-events", bytes.NewReader(payload))
	if sign {
		req.Header.Set(gateway.SignatureHeader, s.client.SignCallback(payload, time.Now()))
	} else {
		req.Header.Set(gateway.SignatureHeader, fmt.Sprintf("t=%d,v1=deadbeef", time.Now().Unix()))
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code
}

func data(resp map[string]interface{}) map[string]interface{} {
	d, _ := resp["data"].(map[string]interface{})
	return d
}

func TestRouter_RefillThroughBothChannels(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "acct-1")

	code, resp := s.call(t, http.MethodPost, "/api/v1/intents", tok, map[string]interface{}{
		"account_id": "acct-1", "amount": "50.00", "purpose": "refill",
	})
	require.Equal(t, http.StatusCreated, code, resp)
	reference := data(resp)["reference"].(string)
	assert.NotEmpty(t, data(resp)["client_secret"])

	// Not paid yet.
	code, resp = s.call(t, http.MethodPost, "/api/v1/settlements", tok, map[string]interface{}{"reference": reference})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PAY_002", resp["error_code"])

	intent := s.gw.succeed(reference)

	assert.Equal(t, http.StatusOK, s.deliver(t, "evt_1", intent, true))

	code, resp = s.call(t, http.MethodPost, "/api/v1/settlements", tok, map[string]interface{}{"reference": reference})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "settled", data(resp)["status"])
	assert.Equal(t, "50.00", data(resp)["amount"])

	// Redelivery of the same event is acknowledged without effect.
	assert.Equal(t, http.StatusOK, s.deliver(t, "evt_1", intent, true))
	assert.Equal(t, http.StatusOK, s.deliver(t, "evt_2", intent, true))

	code, resp = s.call(t, http.MethodGet, "/api/v1/wallets/acct-1", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "50.00", data(resp)["balance"])
	assert.Equal(t, "AED", data(resp)["currency"])

	code, resp = s.call(t, http.MethodGet, "/api/v1/wallets/acct-1/transactions", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data(resp)["items"], 1)

	assert.Eventually(t, func() bool {
		actions := map[domain.AuditAction]bool{}
		for _, e := range s.audit.Entries() {
			actions[e.Action] = true
		}
		return actions[domain.AuditActionIntentCreated] && actions[domain.AuditActionSettlement]
	}, time.Second, 10*time.Millisecond)
}

func TestRouter_InvalidSignatureRejectedAndAudited(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "acct-1")

	_, resp := s.call(t, http.MethodPost, "/api/v1/intents", tok, map[string]interface{}{
		"account_id": "acct-1", "amount": "10", "purpose": "refill",
	})
	intent := s.gw.succeed(data(resp)["reference"].(string))

	assert.Equal(t, http.StatusBadRequest, s.deliver(t, "evt_forged", intent, false))

	_, resp = s.call(t, http.MethodGet, "/api/v1/wallets/acct-1", tok, nil)
	assert.Equal(t, "0.00", data(resp)["balance"])

	assert.Eventually(t, func() bool {
		for _, e := range s.audit.Entries() {
			if e.Action == domain.AuditActionInvalidSignature {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestRouter_CheckoutFlows(t *testing.T) {
	s := newStack(t)
	tok := s.token(t, "acct-1")

	order := map[string]interface{}{
		"line_items": []map[string]interface{}{
			{"product_ref": "sku-1", "unit_price": "12.00", "quantity": 2, "currency": "AED"},
		},
		"shipping": map[string]interface{}{
			"recipient_name": "Layla", "phone": "+971500000000", "address_line": "Building 4", "city": "Dubai",
		},
	}

	// Card purchase through the gateway.
	code, resp := s.call(t, http.MethodPost, "/api/v1/intents", tok, map[string]interface{}{
		"account_id": "acct-1", "amount": "24", "purpose": "purchase", "order": order,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	reference := data(resp)["reference"].(string)
	s.gw.succeed(reference)

	code, resp = s.call(t, http.MethodPost, "/api/v1/settlements", tok, map[string]interface{}{"reference": reference})
	require.Equal(t, http.StatusOK, code, resp)
	assert.Equal(t, "order_created", data(resp)["kind"])
	cardOrderID := data(resp)["target_id"].(string)

	// Wallet purchase without funds.
	code, resp = s.call(t, http.MethodPost, "/api/v1/orders/wallet-payment", tok, map[string]interface{}{
		"account_id": "acct-1", "amount": "24", "order": order,
	})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "PAY_003", resp["error_code"])

	// Cash on delivery.
	code, resp = s.call(t, http.MethodPost, "/api/v1/orders/cash-on-delivery", tok, map[string]interface{}{
		"account_id": "acct-1", "order": order,
	})
	require.Equal(t, http.StatusCreated, code, resp)
	codOrderID := data(resp)["order_id"].(string)

	code, resp = s.call(t, http.MethodPost, "/api/v1/orders/acct-1/"+codOrderID+"/status", tok, map[string]interface{}{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code, resp)

	code, resp = s.call(t, http.MethodPost, "/api/v1/orders/acct-1/"+codOrderID+"/status", tok, map[string]interface{}{"status": "processing"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "ORD_003", resp["error_code"])

	code, resp = s.call(t, http.MethodGet, "/api/v1/orders/acct-1", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data(resp)["orders"], 2)
	byStatus := data(resp)["by_status"].(map[string]interface{})
	assert.Len(t, byStatus["confirmed"], 1)
	assert.Len(t, byStatus["cancelled"], 1)

	code, resp = s.call(t, http.MethodGet, "/api/v1/orders/acct-1/"+cardOrderID, tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "card", data(resp)["payment_method"])
	assert.Equal(t, reference, data(resp)["gateway_reference"])
	assert.Equal(t, "24.00", data(resp)["total_amount"])
}

func TestRouter_Authentication(t *testing.T) {
	s := newStack(t)

	code, resp := s.call(t, http.MethodGet, "/api/v1/wallets/acct-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "SEC_002", resp["error_code"])

	code, resp = s.call(t, http.MethodGet, "/api/v1/wallets/acct-1", s.token(t, "acct-2"), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "SEC_003", resp["error_code"])

	code, _ = s.call(t, http.MethodGet, "/api/v1/orders/acct-2", s.token(t, "acct-2"), nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestRouter_UnknownReferenceIsNotFound(t *testing.T) {
	s := newStack(t)

	code, resp := s.call(t, http.MethodPost, "/api/v1/settlements", s.token(t, "acct-1"), map[string]interface{}{"reference": "pi_missing"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "REQ_001", resp["error_code"])
}

func TestRouter_Health(t *testing.T) {
	s := newStack(t)

	code, resp := s.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", resp["status"])

	s.redis.Close()
	code, resp = s.call(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", resp["status"])
}
