package handler

import (
	"settlement-core/internal/adapter/http/dto"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// IntentHandler opens gateway payment intents for the client to confirm.
type IntentHandler struct {
	settlementSvc ports.SettlementService
}

// NewIntentHandler creates a new IntentHandler.
func NewIntentHandler(settlementSvc ports.SettlementService) *IntentHandler {
	return &IntentHandler{settlementSvc: settlementSvc}
}

// CreateIntent handles POST /api/v1/intents.
func (h *IntentHandler) CreateIntent(c *gin.Context) {
	var req dto.CreateIntentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !authorizeAccount(c, req.AccountID) {
		return
	}

	in, err := req.ToPorts()
	if err != nil {
		response.Error(c, err)
		return
	}

	result, err := h.settlementSvc.CreateIntent(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewIntentResponse(result))
}
