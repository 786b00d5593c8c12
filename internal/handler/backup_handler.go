package handler

import (
	"fmt"
	"io"
	"time"

	"go-stock-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
)

const maxBackupSize = 32 << 20

type BackupHandler struct {
	service service.BackupService
}

func NewBackupHandler(s service.BackupService) *BackupHandler {
	return &BackupHandler{service: s}
}

func (h *BackupHandler) Export(c *fiber.Ctx) error {
	backup, err := h.service.Export(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="stock-backup-%s.json"`, time.Now().Format("2006-01-02")))
	return c.JSON(backup)
}

// Import accepts the backup either as the raw JSON body or as a multipart "file" field.
func (h *BackupHandler) Import(c *fiber.Ctx) error {
	raw := c.Body()
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxBackupSize {
			return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "Backup file too large"})
		}
		f, err := file.Open()
		if err != nil {
			return badJSON(c)
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return badJSON(c)
		}
	}

	summary, err := h.service.Import(c.UserContext(), raw)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Backup imported", "data": summary})
}
