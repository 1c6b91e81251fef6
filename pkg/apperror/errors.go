package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// Is reports whether err carries an AppError with the given code anywhere in its chain.
func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Error codes. These are the machine-readable error kinds returned to callers.
const (
	CodeInvalidAmount           = "PAY_001"
	CodePaymentNotCompleted     = "PAY_002"
	CodeInsufficientFunds       = "PAY_003"
	CodeDuplicateOrder          = "ORD_001"
	CodeInvalidOrderAmount      = "ORD_002"
	CodeInvalidStatusTransition = "ORD_003"
	CodeSettlementInProgress    = "SET_001"
	CodeInvalidIntentMetadata   = "SET_002"
	CodeCurrencyMismatch        = "SET_003"
	CodeDuplicateTransaction    = "LED_001"
	CodeGatewayUnavailable      = "GW_001"
	CodeGatewayAuthFailed       = "GW_002"
	CodeGatewayBadResponse      = "GW_003"
	CodeInvalidSignature        = "SEC_001"
	CodeInvalidToken            = "SEC_002"
	CodeAccountMismatch         = "SEC_003"
	CodeRateLimitExceeded       = "RATE_001"
	CodeNotFound                = "REQ_001"
	CodeValidation              = "REQ_002"
	CodeInternal                = "SYS_001"
)

// ---- Payment (PAY) ----

func ErrInvalidAmount() *AppError {
	return New(CodeInvalidAmount, "Amount must be positive, below 1e18 and have at most two decimal places", http.StatusBadRequest)
}

func ErrPaymentNotCompleted(status string) *AppError {
	return New(CodePaymentNotCompleted, fmt.Sprintf("Payment not completed (gateway status: %s)", status), http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New(CodeInsufficientFunds, "Insufficient balance in wallet", http.StatusPaymentRequired)
}

// ---- Orders (ORD) ----

func ErrDuplicateOrder(orderID string) *AppError {
	return New(CodeDuplicateOrder, fmt.Sprintf("Order %s already exists", orderID), http.StatusConflict)
}

func ErrInvalidOrderAmount() *AppError {
	return New(CodeInvalidOrderAmount, "Order amount must be positive and match its line items", http.StatusBadRequest)
}

func ErrInvalidStatusTransition(from, to string) *AppError {
	return New(CodeInvalidStatusTransition, fmt.Sprintf("Order cannot move from %s to %s", from, to), http.StatusConflict)
}

// ---- Settlement (SET) ----

func ErrSettlementInProgress() *AppError {
	return New(CodeSettlementInProgress, "Settlement for this payment is in progress, retry later", http.StatusConflict)
}

func ErrInvalidIntentMetadata(reason string) *AppError {
	return New(CodeInvalidIntentMetadata, "Payment intent metadata is invalid: "+reason, http.StatusUnprocessableEntity)
}

func ErrCurrencyMismatch(want, got string) *AppError {
	return New(CodeCurrencyMismatch, fmt.Sprintf("Currency %s does not match wallet currency %s", got, want), http.StatusBadRequest)
}

// ---- Ledger (LED) ----

func ErrDuplicateTransaction(id string) *AppError {
	return New(CodeDuplicateTransaction, fmt.Sprintf("Ledger transaction %s already recorded", id), http.StatusConflict)
}

// ---- Payment gateway (GW) ----

func ErrGatewayUnavailable(err error) *AppError {
	return Wrap(CodeGatewayUnavailable, "Payment gateway unavailable", http.StatusServiceUnavailable, err)
}

func ErrGatewayAuthFailed(err error) *AppError {
	return Wrap(CodeGatewayAuthFailed, "Payment gateway rejected credentials", http.StatusBadGateway, err)
}

func ErrGatewayBadResponse(err error) *AppError {
	return Wrap(CodeGatewayBadResponse, "Malformed payment gateway response", http.StatusBadGateway, err)
}

// ---- Security (SEC) ----

func ErrInvalidSignature() *AppError {
	return New(CodeInvalidSignature, "Invalid signature", http.StatusBadRequest)
}

func ErrInvalidToken() *AppError {
	return New(CodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAccountMismatch() *AppError {
	return New(CodeAccountMismatch, "Token does not grant access to this account", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New(CodeRateLimitExceeded, "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- Request (REQ) ----

func ErrNotFound(entity string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New(CodeValidation, message, http.StatusBadRequest)
}

// ---- System (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
