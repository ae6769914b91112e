package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notedesk/internal/notes/adapters/services"
	"notedesk/internal/notes/domain/entities"
	portservices "notedesk/internal/notes/ports/services"
)

const secretKey = "test-secret-key"

func signedToken(t *testing.T, key string, claims *services.Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return tokenString
}

func validClaims(userID string) *services.Claims {
	return &services.Claims{
		UserID: userID,
		Email:  "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestValidateAccessToken(t *testing.T) {
	ctx := context.Background()
	service := services.NewJWT(secretKey)

	t.Run("valid token", func(t *testing.T) {
		identity, err := service.ValidateAccessToken(ctx, signedToken(t, secretKey, validClaims("test-user-123")))

		require.NoError(t, err)
		assert.Equal(t, &entities.Identity{UserID: "test-user-123", Email: "user@example.com"}, identity)
	})

	t.Run("expired token", func(t *testing.T) {
		claims := validClaims("test-user-123")
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))

		_, err := service.ValidateAccessToken(ctx, signedToken(t, secretKey, claims))

		assert.ErrorIs(t, err, portservices.ErrExpiredJWTToken)
	})

	t.Run("invalid token format", func(t *testing.T) {
		_, err := service.ValidateAccessToken(ctx, "invalid.token.format")

		assert.ErrorIs(t, err, portservices.ErrInvalidJWTToken)
	})

	t.Run("empty userID", func(t *testing.T) {
		_, err := service.ValidateAccessToken(ctx, signedToken(t, secretKey, validClaims("")))

		assert.ErrorIs(t, err, portservices.ErrInvalidJWTToken)
	})

	t.Run("different secret key", func(t *testing.T) {
		_, err := service.ValidateAccessToken(ctx, signedToken(t, "different-secret-key", validClaims("test-user-123")))

		assert.ErrorIs(t, err, portservices.ErrInvalidJWTToken)
	})

	t.Run("invalid algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims("test-user-123"))
		unsignedToken, err := token.SigningString()
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(ctx, unsignedToken+".invalid-signature")

		assert.ErrorIs(t, err, portservices.ErrInvalidJWTToken)
	})
}

func TestContextIdentity(t *testing.T) {
	provider := services.NewContextIdentity()

	t.Run("no identity", func(t *testing.T) {
		_, err := provider.CurrentUser(context.Background())
		assert.ErrorIs(t, err, portservices.ErrNoIdentity)
	})

	t.Run("empty user id", func(t *testing.T) {
		ctx := services.WithIdentity(context.Background(), &entities.Identity{})
		_, err := provider.CurrentUser(ctx)
		assert.ErrorIs(t, err, portservices.ErrNoIdentity)
	})

	t.Run("returns a copy", func(t *testing.T) {
		original := &entities.Identity{UserID: "user-1", Email: "a@b.c"}
		ctx := services.WithIdentity(context.Background(), original)

		identity, err := provider.CurrentUser(ctx)
		require.NoError(t, err)
		assert.Equal(t, *original, *identity)

		identity.UserID = "changed"
		assert.Equal(t, "user-1", original.UserID)
	})
}
