package handler

import (
	"strconv"

	"go-stock-ledger/internal/model"
	"go-stock-ledger/internal/repository"
	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const IdempotencyKeyHeader = "Idempotency-Key"

type InventoryHandler struct {
	service service.InventoryService
}

func NewInventoryHandler(s service.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: s}
}

func productResponses(products []model.Product) []model.ProductResponse {
	out := make([]model.ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, products[i].ToResponse())
	}
	return out
}

func (h *InventoryHandler) CreateProduct(c *fiber.Ctx) error {
	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badJSON(c)
	}

	product, err := h.service.CreateProduct(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Product created", "data": product.ToResponse()})
}

func (h *InventoryHandler) UpdateProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "product ID")
	}
	var in service.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badJSON(c)
	}

	updated, err := h.service.UpdateProduct(c.UserContext(), id, in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product updated", "data": updated.ToResponse()})
}

func (h *InventoryHandler) DeleteProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "product ID")
	}
	if err := h.service.DeleteProduct(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Product deleted"})
}

// GetProducts lists products; ?q= filters by name or barcode.
func (h *InventoryHandler) GetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext(), c.Query("q"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(productResponses(products))
}

func (h *InventoryHandler) GetProduct(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "product ID")
	}
	product, err := h.service.GetProduct(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product.ToResponse())
}

func (h *InventoryHandler) GetProductByBarcode(c *fiber.Ctx) error {
	product, err := h.service.GetProductByBarcode(c.UserContext(), c.Params("barcode"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(product.ToResponse())
}

func (h *InventoryHandler) GetProductTransactions(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "product ID")
	}
	txs, err := h.service.ProductTransactions(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(txs)
}

func (h *InventoryHandler) CreateTransaction(c *fiber.Ctx) error {
	var in service.CreateTransactionInput
	if err := c.BodyParser(&in); err != nil {
		return badJSON(c)
	}
	in.IdempotencyKey = c.Get(IdempotencyKeyHeader)

	result, err := h.service.CreateTransaction(c.UserContext(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Transaction recorded", "data": result})
}

// DeleteTransaction answers 200 either way; "deleted" is false when the id was unknown.
func (h *InventoryHandler) DeleteTransaction(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "transaction ID")
	}
	deleted, err := h.service.DeleteTransaction(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}

// GetTransactions supports ?type=, ?warehouse_id=, ?product_id= and ?limit=.
func (h *InventoryHandler) GetTransactions(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{Type: model.TransactionType(c.Query("type"))}

	for param, dst := range map[string]*uuid.UUID{
		"warehouse_id": &filter.WarehouseID,
		"product_id":   &filter.ProductID,
	} {
		if raw := c.Query(param); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				return invalidParam(c, param)
			}
			*dst = id
		}
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return invalidParam(c, "limit")
		}
		filter.Limit = limit
	}

	transactions, err := h.service.ListTransactions(c.UserContext(), filter)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(transactions)
}

func (h *InventoryHandler) GetTransaction(c *fiber.Ctx) error {
	id, ok := parseID(c, "id")
	if !ok {
		return invalidParam(c, "transaction ID")
	}
	tx, err := h.service.GetTransaction(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tx)
}
