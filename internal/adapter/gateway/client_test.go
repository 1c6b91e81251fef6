package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-core/config"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/internal/service"
	"settlement-core/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.GatewayConfig{
		BaseURL:          srv.URL + "/",
		APIKey:           "sk_test",
		WebhookSecret:    "whsec_test",
		Timeout:          2 * time.Second,
		WebhookTolerance: 5 * time.Minute,
	}, service.NewHMACSignatureService(), zerolog.Nop())
}

func TestClient_CreateIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "intent:abc", r.Header.Get("Idempotency-Key"))

		var body createIntentBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(5000), body.Amount)
		assert.Equal(t, "aed", body.Currency)
		assert.Equal(t, "refill", body.Metadata["purpose"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"pi_1","client_secret":"pi_1_secret","status":"requires_payment_method","amount":5000,"currency":"aed","metadata":{"purpose":"refill"}}`)
	})

	intent, err := c.CreateIntent(context.Background(), ports.CreateIntentParams{
		AmountMinor:    5000,
		Currency:       "AED",
		Metadata:       map[string]string{"purpose": "refill"},
		IdempotencyKey: "intent:abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.Reference)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	assert.Equal(t, domain.IntentStatusRequiresPaymentMethod, intent.Status)
	assert.Equal(t, int64(5000), intent.AmountMinor)
}

func TestClient_RetrieveIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payment_intents/pi_9", r.URL.Path)
		_, _ = io.WriteString(w, `{"id":"pi_9","status":"succeeded","amount":2400,"currency":"aed","metadata":{"account_id":"acct-1"}}`)
	})

	intent, err := c.RetrieveIntent(context.Background(), "pi_9")
	require.NoError(t, err)
	assert.True(t, intent.Succeeded())
	assert.Equal(t, "acct-1", intent.Metadata["account_id"])
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		code   string
	}{
		{"server error", http.StatusInternalServerError, `{"error":{"message":"boom"}}`, apperror.CodeGatewayUnavailable},
		{"bad gateway", http.StatusBadGateway, ``, apperror.CodeGatewayUnavailable},
		{"throttled", http.StatusTooManyRequests, ``, apperror.CodeGatewayUnavailable},
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"invalid api key"}}`, apperror.CodeGatewayAuthFailed},
		{"forbidden", http.StatusForbidden, ``, apperror.CodeGatewayAuthFailed},
		{"not found", http.StatusNotFound, `{"error":{"message":"no such intent"}}`, apperror.CodeNotFound},
		{"bad request", http.StatusBadRequest, `{"error":{"message":"bad"}}`, apperror.CodeGatewayBadResponse},
		{"undecodable", http.StatusOK, `<html>`, apperror.CodeGatewayBadResponse},
		{"missing id", http.StatusOK, `{"status":"succeeded"}`, apperror.CodeGatewayBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			_, err := c.RetrieveIntent(context.Background(), "pi_x")
			require.Error(t, err)
			assert.True(t, apperror.Is(err, tt.code), "got %v", err)
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	c.timeout = 50 * time.Millisecond

	_, err := c.RetrieveIntent(context.Background(), "pi_slow")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeGatewayUnavailable))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := NewClient(config.GatewayConfig{BaseURL: addr, Timeout: time.Second}, service.NewHMACSignatureService(), zerolog.Nop())
	_, err := c.RetrieveIntent(context.Background(), "pi_1")
	assert.True(t, apperror.Is(err, apperror.CodeGatewayUnavailable))
}
