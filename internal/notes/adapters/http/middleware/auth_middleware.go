// Package middleware содержит промежуточное ПО для HTTP обработчиков.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notedesk/internal/notes/adapters/services"
	portservices "notedesk/internal/notes/ports/services"
	"notedesk/pkg/logger"
)

// Константы для логирования.
const (
	LogAuthMiddleware = "auth middleware"
	LogAuthRejected   = "request rejected by auth middleware"

	ErrorNoAuthHeader       = "no authorization header provided"
	ErrorInvalidTokenFormat = "invalid token format"
	ErrorInvalidToken       = "invalid token"
	ErrorExpiredToken       = "token has expired"
)

const bearerPrefix = "Bearer "

// NewAuthMiddleware проверяет Bearer-токен и кладет пользователя в контекст запроса.
func NewAuthMiddleware(tokens portservices.TokenService) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		requestCtx := ctx.Context()
		log := logger.Log(requestCtx).With(zap.String("middleware", "auth"))
		log.Debug(requestCtx, LogAuthMiddleware)

		authHeader := ctx.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return unauthorized(ctx, log, ErrorNoAuthHeader)
		}

		if !strings.HasPrefix(authHeader, bearerPrefix) {
			return unauthorized(ctx, log, ErrorInvalidTokenFormat)
		}

		identity, err := tokens.ValidateAccessToken(requestCtx, strings.TrimSpace(authHeader[len(bearerPrefix):]))
		if err != nil {
			if errors.Is(err, portservices.ErrExpiredJWTToken) {
				return unauthorized(ctx, log, ErrorExpiredToken)
			}
			return unauthorized(ctx, log, ErrorInvalidToken)
		}

		ctx.SetContext(services.WithIdentity(requestCtx, identity))

		return ctx.Next()
	}
}

func unauthorized(ctx fiber.Ctx, log *logger.Logger, reason string) error {
	log.Debug(ctx.Context(), LogAuthRejected, zap.String("reason", reason))
	if err := ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": reason,
	}); err != nil {
		return fmt.Errorf("failed to send unauthorized response: %w", err)
	}
	return nil
}
