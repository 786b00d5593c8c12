package handler

import (
	"errors"

	"go-stock-ledger/internal/service"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindNotFound:
		return fiber.StatusNotFound
	case service.KindValidation, service.KindInvalidFormat:
		return fiber.StatusBadRequest
	case service.KindConfirmationRequired, service.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusServiceUnavailable
	}
}

// respondError writes a typed service error as JSON with its mapped status.
func respondError(c *fiber.Ctx, err error) error {
	kind := service.KindOf(err)
	status := statusFor(kind)
	body := fiber.Map{"error": err.Error(), "kind": kind}

	var se *service.Error
	if errors.As(err, &se) && se.Kind == service.KindConfirmationRequired {
		body["current_stock"] = se.CurrentStock
		body["requested"] = se.Requested
	}
	if status >= fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).Err(err).Str("path", c.Path()).Msg("request failed")
		body["error"] = "Storage unavailable"
	}
	return c.Status(status).JSON(body)
}

// parseID reads a UUID path parameter.
func parseID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}

func invalidParam(c *fiber.Ctx, name string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid " + name, "kind": service.KindValidation})
}

func badJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON", "kind": service.KindValidation})
}
