package notes

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"notedesk/internal/notes/app"
	"notedesk/internal/notes/ports/repositories"
	"notedesk/internal/notes/ports/services"
	"notedesk/internal/notes/resilience"
)

// Сообщения об ошибках для клиента.
const (
	ErrMsgUnauthorized     = "authentication required"
	ErrMsgNoteNotFound     = "note not found"
	ErrMsgNoSession        = "no note selected"
	ErrMsgNotEditing       = "note is not being edited"
	ErrMsgSaveInProgress   = "save in progress"
	ErrMsgStoreUnavailable = "note store temporarily unavailable"
	ErrMsgStoreFailed      = "note store request failed"
	ErrMsgInternal         = "Internal server error"
)

// statusFor сопоставляет ошибку прикладного слоя HTTP-статусу и сообщению.
func statusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var storeErr *app.StoreError

	switch {
	case errors.Is(err, app.ErrAuthRequired), errors.Is(err, services.ErrNoIdentity):
		return fiber.StatusUnauthorized, ErrMsgUnauthorized
	case errors.Is(err, resilience.ErrCircuitOpen):
		return fiber.StatusServiceUnavailable, ErrMsgStoreUnavailable
	case errors.Is(err, repositories.ErrNoteNotFound), errors.Is(err, app.ErrNoteNotLoaded):
		return fiber.StatusNotFound, ErrMsgNoteNotFound
	case errors.Is(err, app.ErrNoActiveSession):
		return fiber.StatusNotFound, ErrMsgNoSession
	case errors.Is(err, app.ErrNotEditing):
		return fiber.StatusConflict, ErrMsgNotEditing
	case errors.Is(err, app.ErrInvalidTransition):
		return fiber.StatusConflict, ErrMsgSaveInProgress
	case errors.As(err, &storeErr):
		return fiber.StatusBadGateway, ErrMsgStoreFailed
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	default:
		return fiber.StatusInternalServerError, ErrMsgInternal
	}
}

// handleError обрабатывает ошибки и возвращает соответствующий HTTP-статус.
func handleError(ctx fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if sendErr := ctx.Status(status).JSON(ErrorResponse{Error: message}); sendErr != nil {
		return fmt.Errorf("error sending %d response: %w", status, sendErr)
	}
	return nil
}

// ErrorHandler - обработчик ошибок fiber для ошибок, не обработанных в хендлерах.
func ErrorHandler(ctx fiber.Ctx, err error) error {
	return handleError(ctx, err)
}
