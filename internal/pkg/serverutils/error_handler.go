package serverutils

import (
	"errors"

	"ai-knowledgebase-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware converts handler errors into JSON responses,
// mapping error kinds to HTTP statuses so services never import transport
// concerns.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"message": fiberErr.Message})
		}

		status := fiber.StatusInternalServerError
		switch apperror.KindOf(err) {
		case apperror.KindValidation:
			status = fiber.StatusBadRequest
		case apperror.KindNotFound:
			status = fiber.StatusNotFound
		case apperror.KindConflict:
			status = fiber.StatusConflict
		case apperror.KindRateLimited:
			status = fiber.StatusTooManyRequests
		case apperror.KindProviderUnavailable:
			status = fiber.StatusServiceUnavailable
		}

		message := err.Error()
		if status == fiber.StatusInternalServerError {
			// Internal details stay in the logs, not in the response body.
			message = "internal server error"
		}

		return ctx.Status(status).JSON(fiber.Map{
			"message": message,
			"code":    apperror.KindOf(err).String(),
		})
	}
}
