package serverutils

import (
	"github.com/gofiber/fiber/v2"

	"courseflow-be/internal/apperror"
)

// statusForKind maps domain failure kinds onto HTTP statuses. Anything
// unclassified is treated as an internal error.
func statusForKind(kind apperror.Kind) int {
	switch kind {
	case apperror.KindNotFound:
		return fiber.StatusNotFound
	case apperror.KindDuplicateRequest:
		return fiber.StatusConflict
	case apperror.KindInvalidState:
		return fiber.StatusConflict
	case apperror.KindOfferExpired:
		return fiber.StatusGone
	case apperror.KindInvalidReason, apperror.KindInvalidAmount:
		return fiber.StatusBadRequest
	case apperror.KindNotEligibleOrder:
		return fiber.StatusUnprocessableEntity
	case apperror.KindTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// HandleError renders a domain error as the standard error envelope.
func HandleError(ctx *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	status := statusForKind(kind)
	message := apperror.MessageOf(err)
	if status == fiber.StatusInternalServerError {
		message = "Internal server error"
	}
	resp := ErrorResponse(status, message)
	if status != fiber.StatusInternalServerError {
		resp.Kind = string(kind)
	}
	return ctx.Status(status).JSON(resp)
}

// ErrorHandlerMiddleware recovers panics and converts stray errors
// bubbling out of handlers into JSON responses.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				_ = ctx.Status(fiber.StatusInternalServerError).
					JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
			}
		}()
		if err := ctx.Next(); err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
			}
			return HandleError(ctx, err)
		}
		return nil
	}
}
