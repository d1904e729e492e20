package serverutils

import (
	"errors"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/deskerr"

	"github.com/gofiber/fiber/v2"
)

// StatusOf maps an error code to the HTTP status the API answers with.
func StatusOf(code deskerr.Code) int {
	switch code {
	case deskerr.CodeValidation, deskerr.CodeInputTooShort, deskerr.CodeInputTooLong:
		return fiber.StatusBadRequest
	case deskerr.CodeNotReady, deskerr.CodeProcessingFailed, deskerr.CodeNoDocument, deskerr.CodeInvalidTransition:
		return fiber.StatusConflict
	case deskerr.CodeOutOfScope:
		return fiber.StatusUnprocessableEntity
	case deskerr.CodeNotFound:
		return fiber.StatusNotFound
	case deskerr.CodeForbidden:
		return fiber.StatusForbidden
	case deskerr.CodeTransportConnect, deskerr.CodeTransport, deskerr.CodeRemoteFailure, deskerr.CodeUnparseableResponse:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func ErrorHandlerMiddleware(log logger.ILogger) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return writeError(ctx, err, log)
	}
}

func writeError(ctx *fiber.Ctx, err error, log logger.ILogger) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return ctx.Status(fe.Code).JSON(ErrorResponse(fe.Code, fe.Message))
	}

	var derr *deskerr.Error
	if errors.As(err, &derr) {
		status := StatusOf(derr.Code)
		if status >= fiber.StatusInternalServerError {
			log.Error("HTTP", "Request failed", map[string]interface{}{
				"path":  ctx.Path(),
				"code":  string(derr.Code),
				"error": err.Error(),
			})
		}
		res := ErrorResponse(status, deskerr.MessageOf(err, string(derr.Code)))
		res.ErrorCode = string(derr.Code)
		return ctx.Status(status).JSON(res)
	}

	log.Error("HTTP", "Unhandled error", map[string]interface{}{
		"path":  ctx.Path(),
		"error": err.Error(),
	})
	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse(fiber.StatusInternalServerError, "Internal server error"))
}
