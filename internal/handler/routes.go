package handler

import "github.com/gofiber/fiber/v2"

// Handlers bundles every HTTP handler mounted under the API prefix.
type Handlers struct {
	Inventory  *InventoryHandler
	Dashboard  *DashboardHandler
	Warehouses *WarehouseHandler
	Backup     *BackupHandler
}

func RegisterRoutes(api fiber.Router, h Handlers) {
	// Dashboard
	api.Get("/dashboard/stats", h.Dashboard.GetDashboardStats)
	api.Get("/dashboard/sales", h.Dashboard.GetSales)
	api.Get("/dashboard/payments", h.Dashboard.GetPayments)
	api.Get("/dashboard/stock-movement", h.Dashboard.GetStockMovement)

	// Products
	api.Get("/products", h.Inventory.GetProducts)
	api.Post("/products", h.Inventory.CreateProduct)
	api.Get("/products/barcode/:barcode", h.Inventory.GetProductByBarcode)
	api.Get("/products/:id", h.Inventory.GetProduct)
	api.Put("/products/:id", h.Inventory.UpdateProduct)
	api.Delete("/products/:id", h.Inventory.DeleteProduct)
	api.Get("/products/:id/transactions", h.Inventory.GetProductTransactions)

	// Transactions
	api.Get("/transactions", h.Inventory.GetTransactions)
	api.Post("/transactions", h.Inventory.CreateTransaction)
	api.Get("/transactions/:id", h.Inventory.GetTransaction)
	api.Delete("/transactions/:id", h.Inventory.DeleteTransaction)

	// Warehouses & settings
	api.Get("/warehouses", h.Warehouses.GetWarehouses)
	api.Post("/warehouses", h.Warehouses.CreateWarehouse)
	api.Delete("/warehouses/:id", h.Warehouses.DeleteWarehouse)
	api.Get("/settings", h.Warehouses.GetSettings)
	api.Put("/settings/:key", h.Warehouses.PutSetting)

	// Backup
	api.Get("/backup/export", h.Backup.Export)
	api.Post("/backup/import", h.Backup.Import)
}
