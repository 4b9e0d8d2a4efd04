package response

import (
	"errors"

	apperrors "fraudshield/internal/errors"
	"fraudshield/internal/logger"

	"github.com/gofiber/fiber/v2"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, "Unauthorized")
}

// StatusFor maps a domain error kind to its HTTP status.
func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return fiber.StatusBadRequest
	case apperrors.KindBusiness:
		return fiber.StatusUnprocessableEntity
	case apperrors.KindNotFound:
		return fiber.StatusNotFound
	case apperrors.KindForbidden:
		return fiber.StatusForbidden
	case apperrors.KindConflict:
		return fiber.StatusConflict
	case apperrors.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperrors.KindRetryable, apperrors.KindUnavailable:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// FromError writes err as a JSON error body. Server errors hide their cause from the client.
func FromError(c *fiber.Ctx, err error) error {
	de, ok := apperrors.As(err)
	if !ok {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return Error(c, fe.Code, fe.Message)
		}
		de = apperrors.ErrInternal.Wrap(err)
	}

	status := StatusFor(de.Kind)
	if status >= fiber.StatusInternalServerError {
		log := logger.FromContext(c.UserContext())
		log.Error().Err(err).Str("code", de.Code).Str("path", c.Path()).Msg("request failed")
	}

	body := fiber.Map{
		"error": de.Message,
		"code":  de.Code,
	}
	if len(de.Fields) > 0 {
		body["fields"] = de.Fields
	}
	if de.Retryable() {
		body["retryable"] = true
		c.Set(fiber.HeaderRetryAfter, "2")
	}
	return c.Status(status).JSON(body)
}

// ErrorHandler is the application-wide fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	return FromError(c, err)
}
