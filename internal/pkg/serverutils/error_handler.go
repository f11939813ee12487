package serverutils

import (
	"errors"

	"game-exploration-be/pkg/exploration"

	"github.com/gofiber/fiber/v2"
)

// StatusFor maps an exploration error kind to its HTTP status.
func StatusFor(err error) int {
	var fiberErr *fiber.Error
	switch {
	case errors.Is(err, exploration.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, exploration.ErrPrecondition),
		errors.Is(err, exploration.ErrFixLimitExceeded),
		errors.Is(err, exploration.ErrCacheMiss),
		errors.Is(err, exploration.ErrConstraintViolation):
		return fiber.StatusBadRequest
	case errors.Is(err, exploration.ErrMalformedOutput):
		return fiber.StatusBadGateway
	case errors.Is(err, exploration.ErrProvider):
		return fiber.StatusServiceUnavailable
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler is installed as the fiber.Config ErrorHandler.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := StatusFor(err)
	res := ErrorResponse(code, err.Error())
	res.Retryable = exploration.IsRetryable(err)
	return ctx.Status(code).JSON(res)
}

func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		if err := ctx.Next(); err != nil {
			return ErrorHandler(ctx, err)
		}
		return nil
	}
}
