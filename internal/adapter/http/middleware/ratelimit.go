package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	redisStore "settlement-core/internal/adapter/storage/redis"
	"settlement-core/pkg/apperror"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// KeyFunc picks the counter a request is charged to.
type KeyFunc func(c *gin.Context) string

// RateLimitRule defines a rate limit for an endpoint group.
type RateLimitRule struct {
	Limit  int64
	Window time.Duration
	Key    KeyFunc // nil = ClientKey
}

// DefaultRateLimitRules returns the rate limits per endpoint group.
// Settlement confirmations are limited per payment reference, everything
// else per caller.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"intents":        {Limit: 30, Window: time.Minute},
		"settlements":    {Limit: 10, Window: time.Minute, Key: ReferenceKey},
		"gateway_events": {Limit: 600, Window: time.Minute},
		"orders":         {Limit: 30, Window: time.Minute},
		"queries":        {Limit: 120, Window: time.Minute},
	}
}

// RateLimiter charges each request to rule's key within group. Redis failures
// let the request through.
func RateLimiter(store *redisStore.RateLimitStore, group string, rule RateLimitRule, log zerolog.Logger) gin.HandlerFunc {
	keyOf := rule.Key
	if keyOf == nil {
		keyOf = ClientKey
	}

	return func(c *gin.Context) {
		key := group + ":" + keyOf(c)
		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("rate limit check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		writeRateLimitHeaders(c.Writer.Header(), result)
		if result.Allowed {
			c.Next()
			return
		}

		c.Header("Retry-After", strconv.FormatInt(retryAfter(result.ResetAt, time.Now()), 10))
		log.Info().Str("group", group).Str("key", key).Msg("Rate limit exceeded")
		response.Error(c, apperror.ErrRateLimitExceeded())
	}
}

func writeRateLimitHeaders(h http.Header, r *redisStore.RateLimitResult) {
	h.Set("X-RateLimit-Limit", strconv.FormatInt(r.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(r.Remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(r.ResetAt, 10))
}

// retryAfter is the whole seconds until resetAt, at least 1.
func retryAfter(resetAt int64, now time.Time) int64 {
	if secs := resetAt - now.Unix(); secs > 1 {
		return secs
	}
	return 1
}

// ClientKey keys the limit by authenticated account, falling back to the path
// account and then the client IP.
func ClientKey(c *gin.Context) string {
	if id, ok := AuthenticatedAccount(c); ok && id != "" {
		return "acct:" + id
	}
	if id := c.Param("accountId"); id != "" {
		return "acct:" + id
	}
	return "ip:" + c.ClientIP()
}

const maxReferenceKeyLen = 255

// ReferenceKey keys the limit by the payment reference in a JSON body, so
// repeated confirmations of one payment share a counter whoever sends them.
// The body is restored for the handler. Requests without a usable reference
// fall back to ClientKey.
func ReferenceKey(c *gin.Context) string {
	if c.Request.Body == nil {
		return ClientKey(c)
	}
	body, err := io.ReadAll(c.Request.Body)
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil {
		return ClientKey(c)
	}

	var peek struct {
		Reference string `json:"reference"`
	}
	if json.Unmarshal(body, &peek) != nil {
		return ClientKey(c)
	}
	ref := strings.TrimSpace(peek.Reference)
	if ref == "" || len(ref) > maxReferenceKeyLen {
		return ClientKey(c)
	}
	return "ref:" + ref
}
