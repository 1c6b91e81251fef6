package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret-key-for-unit-tests"

func TestJWTTokenService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "sessions")

	tokenStr, expiresAt, err := svc.Generate("acct-42")
	require.NoError(t, err)
	assert.NotEmpty(t, tokenStr)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "acct-42", claims.AccountID)
}

func TestJWTTokenService_ExpiredToken(t *testing.T) {
	// Token with -1 hour expiry = already expired
	svc := NewJWTTokenService(testJWTSecret, -1*time.Hour, "sessions")

	tokenStr, _, err := svc.Generate("acct-1")
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err, "expired token should fail validation")
}

func TestJWTTokenService_InvalidSignature(t *testing.T) {
	svc1 := NewJWTTokenService("secret-1", 24*time.Hour, "sessions")
	svc2 := NewJWTTokenService("secret-2", 24*time.Hour, "sessions")

	tokenStr, _, err := svc1.Generate("acct-1")
	require.NoError(t, err)

	_, err = svc2.Validate(tokenStr)
	assert.Error(t, err, "token signed with different secret should fail")
}

func TestJWTTokenService_WrongIssuer(t *testing.T) {
	issuer := NewJWTTokenService(testJWTSecret, time.Hour, "someone-else")
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "sessions")

	tokenStr, _, err := issuer.Generate("acct-1")
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "")

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "acct-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tokenStr, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_MissingSubject(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, time.Hour, "")

	tokenStr, _, err := svc.Generate("")
	require.NoError(t, err)

	_, err = svc.Validate(tokenStr)
	assert.Error(t, err)
}

func TestJWTTokenService_InvalidTokenString(t *testing.T) {
	svc := NewJWTTokenService(testJWTSecret, 24*time.Hour, "sessions")

	_, err := svc.Validate("not.a.valid.jwt")
	assert.Error(t, err)

	_, err = svc.Validate("")
	assert.Error(t, err)
}
