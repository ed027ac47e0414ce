package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// BaseResponse is the uniform JSON envelope for every API answer.
type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    fiber.StatusOK,
		Message: "OK",
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

// ErrorResponseWithData attaches a typed payload to an error envelope,
// e.g. quota details on a 429.
func ErrorResponseWithData[T any](code int, message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: false,
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// ErrorHandlerMiddleware converts errors escaping a handler into the
// envelope, without leaking internals for unexpected failures.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(ErrorResponse(fiberErr.Code, fiberErr.Message))
		}
		return ctx.Status(fiber.StatusInternalServerError).JSON(
			ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
	}
}
