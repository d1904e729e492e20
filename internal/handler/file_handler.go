package handler

import (
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/pkg/serverutils"
	"campus-desk-be/pkg/storage"

	"github.com/gofiber/fiber/v2"
)

// FileHandler serves blobs of the local storage driver behind the signed
// download tokens it issues.
type FileHandler struct {
	store  *storage.LocalStore
	logger logger.ILogger
}

func NewFileHandler(store *storage.LocalStore, log logger.ILogger) *FileHandler {
	return &FileHandler{store: store, logger: log}
}

func (h *FileHandler) RegisterRoutes(app fiber.Router) {
	app.Get("/files/*", h.Download)
}

func (h *FileHandler) Download(c *fiber.Ctx) error {
	path, err := h.store.Resolve(c.Params("*"), c.Query("token"))
	if err != nil {
		h.logger.Warn("FileHandler", "Rejected download", map[string]interface{}{
			"key":   c.Params("*"),
			"error": err.Error(),
		})
		return c.Status(fiber.StatusForbidden).JSON(serverutils.ErrorResponse(fiber.StatusForbidden, "Invalid or expired link"))
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	return c.SendFile(path)
}
