package middleware

import (
	"encoding/json"
	"net/http"

	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful write
// operations. Routes are matched on their registered pattern.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost {
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var accountID *string
		if id, ok := AuthenticatedAccount(c); ok && id != "" {
			accountID = &id
		} else if id := c.Param("accountId"); id != "" {
			accountID = &id
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			AccountID:    accountID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("orderId"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    domain.SettlementTime(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch path {
	case "/api/v1/intents":
		return domain.AuditActionIntentCreated, "intent"
	case "/api/v1/settlements":
		return domain.AuditActionSettlement, "settlement"
	case "/api/v1/orders/wallet-payment":
		return domain.AuditActionWalletPayment, "order"
	case "/api/v1/orders/cash-on-delivery":
		return domain.AuditActionCODOrder, "order"
	case "/api/v1/orders/:accountId/:orderId/status":
		return domain.AuditActionOrderStatus, "order"
	}
	return "", ""
}
