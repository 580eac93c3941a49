package auth

import (
	"context"
	"testing"
	"time"

	"github.com/fsuperadmin/backend/internal/domain/collection"
	"github.com/fsuperadmin/backend/internal/infrastructure/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService()

	token, expiresAt, err := svc.GenerateToken(GenerateTokenInput{
		OperatorID:  "op-1",
		Email:       "cashier@example.com",
		Permissions: []string{"collections:create"},
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "op-1", claims.OperatorID)

	op := claims.Operator(token)
	assert.Equal(t, "op-1", op.ID)
	assert.Equal(t, "cashier@example.com", op.Label())
	assert.Equal(t, token, op.Token)
	assert.True(t, op.HasPermission("collections:create"))
	assert.False(t, op.HasPermission("collections:delete"))
}

func TestJWTService_ValidateToken_Failures(t *testing.T) {
	svc := newTestJWTService()

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "another-secret-another-secret-123", AccessTokenExpiration: time.Minute, Issuer: "test-issuer"})
		token, _, err := other.GenerateToken(GenerateTokenInput{OperatorID: "op-1"})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		expired := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", AccessTokenExpiration: -time.Minute, Issuer: "test-issuer"})
		token, _, err := expired.GenerateToken(GenerateTokenInput{OperatorID: "op-1"})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", AccessTokenExpiration: time.Minute, Issuer: "someone-else"})
		token, _, err := other.GenerateToken(GenerateTokenInput{OperatorID: "op-1"})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing operator", func(t *testing.T) {
		token, _, err := svc.GenerateToken(GenerateTokenInput{})
		require.NoError(t, err)
		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrMissingOperator)
	})

	t.Run("unexpected signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{OperatorID: "op-1"})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestContextIdentity(t *testing.T) {
	_, err := ContextIdentity{}.Operator(context.Background())
	assert.ErrorIs(t, err, collection.ErrSessionExpired)

	ctx := WithOperator(context.Background(), &collection.Operator{ID: "op-9"})
	op, err := ContextIdentity{}.Operator(ctx)
	require.NoError(t, err)
	assert.Equal(t, "op-9", op.ID)
}
