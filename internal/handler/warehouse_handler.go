package handler

import (
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type WarehouseHandler struct {
	warehouses service.WarehouseService
	settings   service.SettingsService
}

func NewWarehouseHandler(w service.WarehouseService, s service.SettingsService) *WarehouseHandler {
	return &WarehouseHandler{warehouses: w, settings: s}
}

func (h *WarehouseHandler) GetWarehouses(c *fiber.Ctx) error {
	list, err := h.warehouses.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

func (h *WarehouseHandler) CreateWarehouse(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	w, err := h.warehouses.Create(c.UserContext(), req.Name)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Warehouse created", "data": w})
}

// DeleteWarehouse removes the warehouse record only; stock keyed by it is not touched.
func (h *WarehouseHandler) DeleteWarehouse(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "warehouse ID")
	}
	if err := h.warehouses.Delete(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Warehouse deleted"})
}

func (h *WarehouseHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.List(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(settings)
}

func (h *WarehouseHandler) PutSetting(c *fiber.Ctx) error {
	var req struct {
		Value string `json:"value"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badJSON(c)
	}
	setting, err := h.settings.Put(c.UserContext(), c.Params("key"), req.Value)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(setting)
}
