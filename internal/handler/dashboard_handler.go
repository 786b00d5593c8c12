package handler

import (
	"strconv"

	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

type DashboardHandler struct {
	service service.DashboardService
}

func NewDashboardHandler(s service.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: s}
}

// GetStockMovement returns daily inbound/outbound quantities for charts
// Query params: days (default 7)
func (h *DashboardHandler) GetStockMovement(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 {
		days = 7
	}

	data, err := h.service.GetStockMovement(c.UserContext(), days)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"period": days,
		"data":   data,
	})
}

func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	stats, err := h.service.GetDashboardStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// GetSales reports exits for ?period=today|week|month|all (default month).
func (h *DashboardHandler) GetSales(c *fiber.Ctx) error {
	period, err := service.ParsePeriod(c.Query("period"))
	if err != nil {
		return respondError(c, err)
	}
	summary, err := h.service.GetSalesReport(c.UserContext(), period)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(summary)
}

func (h *DashboardHandler) GetPayments(c *fiber.Ctx) error {
	breakdown, err := h.service.GetPaymentBreakdown(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"paid":        breakdown.Paid,
		"pending":     breakdown.Pending,
		"partial":     breakdown.Partial,
		"outstanding": breakdown.Outstanding(),
	})
}
