package handler

import (
	"settlement-core/internal/adapter/http/dto"
	"settlement-core/internal/core/ports"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	querySvc ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(querySvc ports.QueryService) *WalletHandler {
	return &WalletHandler{querySvc: querySvc}
}

// GetWallet handles GET /api/v1/wallets/:accountId.
func (h *WalletHandler) GetWallet(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}

	w, err := h.querySvc.GetWallet(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewWalletResponse(w))
}

// ListTransactions handles GET /api/v1/wallets/:accountId/transactions.
func (h *WalletHandler) ListTransactions(c *gin.Context) {
	accountID, ok := accountParam(c)
	if !ok {
		return
	}

	txs, err := h.querySvc.ListTransactions(c.Request.Context(), accountID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.NewTransactionListResponse(accountID, txs))
}
