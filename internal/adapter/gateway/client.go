package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"settlement-core/config"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/apperror"

	"github.com/rs/zerolog"
)

const (
	intentsPath     = "/v1/payment_intents"
	maxResponseSize = 1 << 20
)

// Client implements ports.IntentGateway over the gateway's JSON API.
type Client struct {
	baseURL          string
	apiKey           string
	webhookSecret    string
	timeout          time.Duration
	webhookTolerance time.Duration

	client    *http.Client
	signature ports.SignatureService
	log       zerolog.Logger
	now       func() time.Time
}

// NewClient creates a gateway client from config.
func NewClient(cfg config.GatewayConfig, sigSvc ports.SignatureService, log zerolog.Logger) *Client {
	return &Client{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:           cfg.APIKey,
		webhookSecret:    cfg.WebhookSecret,
		timeout:          cfg.Timeout,
		webhookTolerance: cfg.WebhookTolerance,
		client:           &http.Client{},
		signature:        sigSvc,
		log:              log.With().Str("component", "gateway").Logger(),
		now:              time.Now,
	}
}

type createIntentBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// CreateIntent opens a payment intent at the gateway.
func (c *Client) CreateIntent(ctx context.Context, params ports.CreateIntentParams) (*domain.Intent, error) {
	body, err := json.Marshal(createIntentBody{
		Amount:   params.AmountMinor,
		Currency: strings.ToLower(params.Currency),
		Metadata: params.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("encode intent request: %w", err)
	}

	headers := http.Header{}
	if params.IdempotencyKey != "" {
		headers.Set("Idempotency-Key", params.IdempotencyKey)
	}

	intent, err := c.do(ctx, http.MethodPost, intentsPath, body, headers)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("reference", intent.Reference).
		Int64("amount_minor", intent.AmountMinor).
		Str("currency", intent.Currency).
		Msg("Payment intent created")
	return intent, nil
}

// RetrieveIntent fetches the gateway's current view of an intent.
func (c *Client) RetrieveIntent(ctx context.Context, reference string) (*domain.Intent, error) {
	return c.do(ctx, http.MethodGet, intentsPath+"/"+url.PathEscape(reference), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, headers http.Header) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	for k, v := range headers {
		req.Header[k] = v
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("Gateway request failed")
		return nil, apperror.ErrGatewayUnavailable(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("read gateway response: %w", err))
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Gateway response")

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var intent domain.Intent
		if err := json.Unmarshal(raw, &intent); err != nil {
			return nil, apperror.ErrGatewayBadResponse(fmt.Errorf("decode intent: %w", err))
		}
		if intent.Reference == "" || intent.Status == "" {
			return nil, apperror.ErrGatewayBadResponse(errors.New("intent without id or status"))
		}
		return &intent, nil
	}

	statusErr := fmt.Errorf("gateway returned %d: %s", resp.StatusCode, errorMessage(raw))
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Error().Int("status", resp.StatusCode).Msg("Gateway rejected API key")
		return nil, apperror.ErrGatewayAuthFailed(statusErr)
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperror.ErrNotFound("payment intent")
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.log.Warn().Int("status", resp.StatusCode).Msg("Gateway unavailable")
		return nil, apperror.ErrGatewayUnavailable(statusErr)
	default:
		return nil, apperror.ErrGatewayBadResponse(statusErr)
	}
}

func errorMessage(raw []byte) string {
	var e errorBody
	if err := json.Unmarshal(raw, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}
