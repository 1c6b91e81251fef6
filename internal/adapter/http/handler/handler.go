package handler

import (
	"settlement-core/internal/adapter/http/dto"
	"settlement-core/internal/adapter/http/middleware"
	"settlement-core/pkg/apperror"
	"settlement-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// bindJSON binds and sanitizes the request body. On failure the error
// response has been written and false is returned.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return false
	}
	dto.SanitizeStruct(req)
	return true
}

// authorizeAccount rejects requests whose bearer token was issued for a
// different account. Without authentication every account is accepted.
func authorizeAccount(c *gin.Context, accountID string) bool {
	if subject, ok := middleware.AuthenticatedAccount(c); ok && subject != accountID {
		response.Error(c, apperror.ErrAccountMismatch())
		return false
	}
	return true
}

// pathID reads a path parameter and checks it is a well-formed identifier.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !dto.IsSafeID(id) {
		response.Error(c, apperror.Validation("invalid "+name))
		return "", false
	}
	return id, true
}

// accountParam reads the :accountId path parameter and authorizes it.
func accountParam(c *gin.Context) (string, bool) {
	id, ok := pathID(c, "accountId")
	if !ok {
		return "", false
	}
	return id, authorizeAccount(c, id)
}
