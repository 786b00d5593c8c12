package middleware

import (
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestContext tags each request with an id, echoes it in the response and
// carries it on the user context so service logs can be correlated.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(RequestIDHeader, requestID)
		c.Locals("request_id", requestID)
		c.SetUserContext(logger.WithRequestID(c.UserContext(), requestID))
		return c.Next()
	}
}
