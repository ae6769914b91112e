package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"notedesk/internal/notes/metrics"
	"notedesk/pkg/logger"
)

// Константы для логирования.
const (
	LogServerPanic       = "Server panic"
	LogPanicResponseFail = "Failed to send error response after panic"
)

// NewRecoveryMiddleware перехватывает панику обработчика и отвечает 500.
func NewRecoveryMiddleware(m *metrics.Manager) fiber.Handler {
	return func(ctx fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				requestCtx := ctx.Context()
				log := logger.Log(requestCtx)

				if m != nil {
					m.CounterHandlePanic.Inc()
				}

				log.Error(requestCtx, LogServerPanic,
					zap.String("error", fmt.Sprintf("%v", r)),
					zap.String("stack", string(debug.Stack())),
				)

				if err := ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Internal Server Error",
				}); err != nil {
					log.Error(requestCtx, LogPanicResponseFail, zap.Error(err))
				}
			}
		}()

		return ctx.Next()
	}
}
