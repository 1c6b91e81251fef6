package handler

import (
	"settlement-core/internal/adapter/http/dto"
	"settlement-core/internal/core/domain"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// OrderHandler handles checkout and order endpoints.
type OrderHandler struct {
	settlementSvc ports.SettlementService
	querySvc      ports.QueryService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(settlementSvc ports.SettlementService, querySvc ports.QueryService) *OrderHandler {
	return &OrderHandler{settlementSvc: settlementSvc, querySvc: querySvc}
}

// PayWithWallet handles POST /api/v1/orders/wallet-payment.
func (h *OrderHandler) PayWithWallet(c *gin.Context) {
	var req dto.WalletPaymentRequest
	if !bindJSON(c, &req) {
		return
	}
	if !authorizeAccount(c, req.AccountID) {
		return
	}

	order, err := h.settlementSvc.PayWithWallet(c.Request.Context(), req.ToPorts())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewOrderResponse(order))
}

// PayCashOnDelivery handles POST /api/v1/orders/cash-on-delivery.
func (h *OrderHandler) PayCashOnDelivery(c *gin.Context) {
	var req dto.CashOnDeliveryRequest
	if !bindJSON(c, &req) {
		return
	}
	if !authorizeAccount(c, req.AccountID) {
		return
	}

	order, err := h.settlementSvc.PayCashOnDelivery(c.Request.Context(), req.ToPorts())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.NewOrderResponse(order))
}

// ListOrders handles GET /api/v1/orders/:accountId?status=.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}

	var status *domain.OrderStatus
	if s := c.Query("status"); s != "" {
		st := domain.OrderStatus(s)
		status = &st
	}

	orders, err := h.querySvc.ListOrders(c.Request.Context(), accountID, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewOrderListResponse(orders))
}

// GetOrder handles GET /api/v1/orders/:accountId/:orderId.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	order, err := h.querySvc.GetOrder(c.Request.Context(), accountID, orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewOrderResponse(order))
}

// AdvanceOrder handles POST /api/v1/orders/:accountId/:orderId/status.
func (h *OrderHandler) AdvanceOrder(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c, "orderId")
	if !ok {
		return
	}

	var req dto.OrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.settlementSvc.AdvanceOrder(c.Request.Context(), accountID, orderID, domain.OrderStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewOrderResponse(order))
}
