package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/dashboard"
	"github.com/rag-monitor/dashboard/pkg/logger"
)

type SystemHandler struct {
	service *dashboard.Service
}

func NewSystemHandler(service *dashboard.Service) *SystemHandler {
	return &SystemHandler{service: service}
}

// Refresh drops every memoized payload. The next section load hits the
// backend again.
func (h *SystemHandler) Refresh(c *fiber.Ctx) error {
	if err := h.service.Refresh(c.Context()); err != nil {
		logger.Error("Cache refresh failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to refresh cache",
		})
	}
	logger.Info("Cache refreshed on demand")
	return c.JSON(fiber.Map{
		"status": "refreshed",
	})
}

func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}
