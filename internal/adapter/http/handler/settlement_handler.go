package handler

import (
	"encoding/json"
	"io"
	"time"

	"settlement-core/internal/adapter/gateway"
	"settlement-core/internal/adapter/http/dto"
	"settlement-core/internal/adapter/http/middleware"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/apperror"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// gatewayEventTTL outlives the gateway's redelivery window.
const gatewayEventTTL = 72 * time.Hour

// SettlementHandler serves both confirmation channels: the client-driven
// reconcile call and the gateway's signed callback.
type SettlementHandler struct {
	settlementSvc ports.SettlementService
	gateway       ports.IntentGateway
	events        ports.EventStore   // nil = callbacks are not deduplicated
	auditSvc      ports.AuditService // nil = security events are only logged
	log           zerolog.Logger
}

// NewSettlementHandler creates a new SettlementHandler.
func NewSettlementHandler(
	settlementSvc ports.SettlementService,
	gw ports.IntentGateway,
	events ports.EventStore,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *SettlementHandler {
	return &SettlementHandler{
		settlementSvc: settlementSvc,
		gateway:       gw,
		events:        events,
		auditSvc:      auditSvc,
		log:           log.With().Str("component", "settlement_handler").Logger(),
	}
}

// Reconcile handles POST /api/v1/settlements.
func (h *SettlementHandler) Reconcile(c *gin.Context) {
	var req dto.ReconcileRequest
	if !bindJSON(c, &req) {
		return
	}

	accountID := req.AccountID
	if subject, ok := middleware.AuthenticatedAccount(c); ok {
		if accountID == "" {
			accountID = subject
		}
		if !authorizeAccount(c, accountID) {
			return
		}
	}

	rec, err := h.settlementSvc.Reconcile(c.Request.Context(), ports.ReconcileRequest{
		Reference: req.Reference,
		AccountID: accountID,
		Channel:   domain.ChannelClient,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewSettlementResponse(rec))
}

// GatewayEvent handles POST /api/v1/gateway-events. Once the signature is
// verified the callback is always acknowledged; settlement failures are
// logged and left for the gateway's redelivery or the client channel.
func (h *SettlementHandler) GatewayEvent(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("Unreadable request body"))
		return
	}

	event, err := h.gateway.VerifyCallback(payload, c.GetHeader(gateway.SignatureHeader))
	switch {
	case apperror.Is(err, apperror.CodeInvalidSignature):
		h.log.Warn().Str("client_ip", c.ClientIP()).Msg("Rejected gateway callback with invalid signature")
		h.auditInvalidSignature(c)
		response.Error(c, err)
		return
	case err != nil:
		// Signed by the gateway but unusable; redelivery would not help.
		h.log.Warn().Err(err).Int("bytes", len(payload)).Msg("Acknowledging undecodable gateway event")
		response.OK(c, dto.GatewayEventResponse{Received: true})
		return
	}

	ctx := c.Request.Context()
	log := h.log.With().
		Str("event_id", event.ID).
		Str("event_type", event.Type).
		Str("reference", event.Intent.Reference).
		Logger()

	if h.events != nil {
		processed, err := h.events.IsProcessed(ctx, event.ID)
		if err != nil {
			log.Warn().Err(err).Msg("Event dedupe lookup failed, handling event")
		} else if processed {
			log.Debug().Msg("Gateway event already handled")
			response.OK(c, dto.GatewayEventResponse{Received: true, Duplicate: true})
			return
		}
	}

	rec, err := h.settlementSvc.ReconcileEvent(ctx, event)
	if err != nil {
		if apperror.Is(err, apperror.CodeInternal) {
			log.Error().Err(err).Msg("Gateway event not settled")
		} else {
			log.Warn().Err(err).Msg("Gateway event not settled")
		}
		response.OK(c, dto.GatewayEventResponse{Received: true})
		return
	}

	if rec == nil {
		log.Debug().Msg("Gateway event type ignored")
	}
	if h.events != nil {
		if _, err := h.events.MarkProcessed(ctx, event.ID, gatewayEventTTL); err != nil {
			log.Warn().Err(err).Msg("Failed to mark gateway event processed")
		}
	}

	response.OK(c, dto.GatewayEventResponse{Received: true})
}

func (h *SettlementHandler) auditInvalidSignature(c *gin.Context) {
	if h.auditSvc == nil {
		return
	}
	details, _ := json.Marshal(map[string]interface{}{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(middleware.CtxRequestID),
	})
	h.auditSvc.Log(c.Request.Context(), &domain.AuditLog{
		ID:           uuid.New(),
		Action:       domain.AuditActionInvalidSignature,
		ResourceType: "gateway_event",
		IPAddress:    c.ClientIP(),
		Details:      string(details),
		CreatedAt:    domain.SettlementTime(),
	})
}
