package handler

import (
	"context"
	"net/http"
	"time"

	"settlement-core/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health. Each dependency gets its own deadline so
// one hung backend cannot stall the probe; any failure reports 503.
func HealthCheck(timeout time.Duration, checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status    string `json:"status"`
			LatencyMS int64  `json:"latency_ms"`
			Error     string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus, len(checkers))
		allHealthy := true

		for _, checker := range checkers {
			ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
			start := time.Now()
			err := checker.Ping(ctx)
			cancel()

			st := depStatus{Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				st.Status = "unhealthy"
				st.Error = err.Error()
				allHealthy = false
			}
			deps[checker.Name()] = st
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"dependencies": deps,
		})
	}
}
