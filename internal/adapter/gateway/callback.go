package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"settlement-core/internal/core/domain"
	"settlement-core/pkg/apperror"
)

// SignatureHeader is the header carrying the callback signature.
const SignatureHeader = "Gateway-Signature"

// VerifyCallback authenticates a callback body against its signature header
// ("t=<unix>,v1=<hex>[,v1=<hex>]") and decodes the event.
func (c *Client) VerifyCallback(payload []byte, signatureHeader string) (*domain.GatewayEvent, error) {
	ts, sigs, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		c.log.Warn().Err(err).Msg("Malformed gateway signature header")
		return nil, apperror.ErrInvalidSignature()
	}

	if c.webhookTolerance > 0 {
		age := c.now().Sub(time.Unix(ts, 0))
		if age < 0 {
			age = -age
		}
		if age > c.webhookTolerance {
			c.log.Warn().Int64("timestamp", ts).Dur("age", age).Msg("Gateway callback outside tolerance")
			return nil, apperror.ErrInvalidSignature()
		}
	}

	if !c.signature.VerifyAny(c.webhookSecret, ts, payload, sigs) {
		return nil, apperror.ErrInvalidSignature()
	}

	var event domain.GatewayEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, apperror.Validation("Malformed gateway event")
	}
	if event.ID == "" || event.Type == "" {
		return nil, apperror.Validation("Gateway event without id or type")
	}
	return &event, nil
}

// SignCallback produces the header the gateway sends for payload signed at ts.
func (c *Client) SignCallback(payload []byte, ts time.Time) string {
	unix := ts.Unix()
	sig := c.signature.Sign(c.webhookSecret, unix, payload)
	return fmt.Sprintf("t=%d,v1=%s", unix, sig)
}

func parseSignatureHeader(header string) (int64, []string, error) {
	var (
		ts   int64
		sigs []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("invalid timestamp %q", value)
			}
			ts = n
		case "v1":
			sigs = append(sigs, value)
		}
	}
	if ts == 0 {
		return 0, nil, fmt.Errorf("missing timestamp")
	}
	if len(sigs) == 0 {
		return 0, nil, fmt.Errorf("missing v1 signature")
	}
	return ts, sigs, nil
}
