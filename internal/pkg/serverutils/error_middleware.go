package serverutils

import (
	"errors"

	"voice-journal-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts domain errors bubbling out of controllers
// into the JSON error envelope. Unknown errors become 500s with a generic
// message so internals never leak to clients.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		status := fiber.StatusInternalServerError
		message := "Internal server error"

		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		case errors.Is(err, service.ErrSessionNotFound):
			status = fiber.StatusNotFound
			message = err.Error()
		case errors.Is(err, service.ErrInvalidTransition):
			status = fiber.StatusConflict
			message = err.Error()
		case errors.Is(err, service.ErrAttemptExhausted):
			status = fiber.StatusTooManyRequests
			message = err.Error()
		case errors.Is(err, service.ErrReconnectionTimeout):
			status = fiber.StatusGone
			message = err.Error()
		case errors.Is(err, service.ErrEntitlementDenied):
			status = fiber.StatusForbidden
			message = err.Error()
		case errors.Is(err, service.ErrCompletionStream), errors.Is(err, service.ErrSynthesisFailed):
			status = fiber.StatusBadGateway
			message = err.Error()
		}

		return ctx.Status(status).JSON(ErrorResponse(message))
	}
}
