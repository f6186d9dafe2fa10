package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/internal/auth"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := auth.NewJWTService("test-secret", time.Hour)

	token, err := svc.GenerateToken(42, "u@x.com", true)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), claims.UserID)
	assert.Equal(t, "u@x.com", claims.Email)
	assert.True(t, claims.IsAdmin)
	assert.Equal(t, "42", claims.Subject)
}

func TestJWTService_RejectsWrongSecret(t *testing.T) {
	token, err := auth.NewJWTService("one", time.Hour).GenerateToken(1, "a@b.c", false)
	require.NoError(t, err)

	_, err = auth.NewJWTService("two", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := auth.NewJWTService("s", -time.Minute)
	token, err := svc.GenerateToken(1, "a@b.c", false)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}

func TestJWTService_RejectsNoneAlgorithm(t *testing.T) {
	claims := auth.Claims{UserID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: "taskboard"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = auth.NewJWTService("s", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, auth.CheckPassword("hunter22", hash))
	assert.False(t, auth.CheckPassword("hunter23", hash))
}
