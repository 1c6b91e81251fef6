package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionIntentCreated    AuditAction = "INTENT_CREATED"
	AuditActionSettlement       AuditAction = "SETTLEMENT"
	AuditActionWalletPayment    AuditAction = "WALLET_PAYMENT"
	AuditActionCODOrder         AuditAction = "COD_ORDER"
	AuditActionOrderStatus      AuditAction = "ORDER_STATUS"
	AuditActionInvalidSignature AuditAction = "INVALID_SIGNATURE"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	AccountID    *string     `json:"account_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}
