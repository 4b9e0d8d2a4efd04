package middleware

import (
	"time"

	"fraudshield/internal/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestRecorder receives one observation per served request.
type RequestRecorder interface {
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}

// RequestContext puts a request-scoped logger, tagged with the request id, on the user
// context. It must run after the requestid middleware.
func RequestContext(base zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		log := base.With().Str("request_id", requestID(c)).Logger()
		c.SetUserContext(logger.WithContext(ctx, log))
		return c.Next()
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestid").(string); ok {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}

// Metrics records the status and latency of every request by matched route. Errors are
// rendered here through the app error handler so the final status is observed.
func Metrics(recorder RequestRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		recorder.RecordHTTPRequest(c.Method(), c.Route().Path, c.Response().StatusCode(), time.Since(start))
		return nil
	}
}
