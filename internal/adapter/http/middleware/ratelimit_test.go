package middleware_test

import (
	"context"
	"io"
	"strings"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"settlement-core/internal/adapter/http/middleware"
	redisStore "settlement-core/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func setupRateLimitRouter(store *redisStore.RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 3, Window: time.Minute}
	log := zerolog.Nop()

	r.GET("/test", middleware.RateLimiter(store, "test", rule, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/wallets/:accountId", middleware.RateLimiter(store, "test", rule, log), func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	return r
}

func TestRateLimiter_AllowsWithinLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redisStore.NewRateLimitStore(client)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, 200, w.Code, "request %d should succeed", i+1)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redisStore.NewRateLimitStore(client)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, 200, w.Code)
	}

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, 429, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimiter_CountsPerAccount(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redisStore.NewRateLimitStore(client)
	router := setupRateLimitRouter(store)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequestWithContext(context.Background(), "GET", "/wallets/acct-a", nil)
		router.ServeHTTP(w, req)
		assert.Equal(t, 200, w.Code)
	}

	// acct-b has an independent counter
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/wallets/acct-b", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
}

func TestRateLimiter_DegradesWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := redisStore.NewRateLimitStore(client)
	router := setupRateLimitRouter(store)
	mr.Close()

	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", "/test", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, 200, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestDefaultRateLimitRules(t *testing.T) {
	rules := middleware.DefaultRateLimitRules()
	assert.Equal(t, int64(30), rules["intents"].Limit)
	assert.Equal(t, int64(10), rules["settlements"].Limit)
	assert.NotNil(t, rules["settlements"].Key)
	assert.Equal(t, int64(600), rules["gateway_events"].Limit)
	assert.Equal(t, int64(30), rules["orders"].Limit)
	assert.Equal(t, int64(120), rules["queries"].Limit)
	for group, rule := range rules {
		assert.Equal(t, time.Minute, rule.Window, group)
	}
}

func setupSettlementRouter(store *redisStore.RateLimitStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	rule := middleware.RateLimitRule{Limit: 2, Window: time.Minute, Key: middleware.ReferenceKey}
	r.POST("/settlements", middleware.RateLimiter(store, "settlements", rule, zerolog.Nop()), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(200, string(body))
	})
	return r
}

func postSettlement(router *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "POST", "/settlements", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_SettlementsCountPerReference(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := setupSettlementRouter(redisStore.NewRateLimitStore(client))

	for i := 0; i < 2; i++ {
		w := postSettlement(router, `{"reference":"pi_1"}`)
		assert.Equal(t, 200, w.Code)
	}

	w := postSettlement(router, `{"reference":"pi_1"}`)
	assert.Equal(t, 429, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// A different payment from the same caller has its own counter.
	w = postSettlement(router, `{"reference":"pi_2"}`)
	assert.Equal(t, 200, w.Code)

	var refKeys int
	for _, k := range mr.Keys() {
		if strings.HasPrefix(k, "ratelimit:settlements:ref:") {
			refKeys++
		}
	}
	assert.Equal(t, 2, refKeys)
}

func TestRateLimiter_SettlementBodyReachesHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	defer client.Close()

	router := setupSettlementRouter(redisStore.NewRateLimitStore(client))

	body := `{"reference":"pi_1","account_id":"acct-1"}`
	w := postSettlement(router, body)
	assert.Equal(t, 200, w.Code)
	assert.Equal(t, body, w.Body.String())
}

func TestReferenceKey_FallsBackToClient(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "reference=pi_1"},
		{name: "missing reference", body: `{"account_id":"acct-1"}`},
		{name: "blank reference", body: `{"reference":"   "}`},
		{name: "oversized reference", body: `{"reference":"` + strings.Repeat("r", 256) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("POST", "/settlements", strings.NewReader(tt.body))
			c.Request.RemoteAddr = "10.0.0.7:5555"

			assert.Equal(t, "ip:10.0.0.7", middleware.ReferenceKey(c))

			rest, err := io.ReadAll(c.Request.Body)
			assert.NoError(t, err)
			assert.Equal(t, tt.body, string(rest))
		})
	}
}
