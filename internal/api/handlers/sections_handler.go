// Package handlers holds the fiber handlers behind the dashboard API.
// Section endpoints are fault-isolated: a backend failure degrades the
// section payload instead of failing the response, so one broken section
// never blanks the rest of the dashboard.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/dashboard"
	"github.com/rag-monitor/dashboard/internal/metrics"
	"github.com/rag-monitor/dashboard/internal/middleware/requestid"
	"github.com/rag-monitor/dashboard/pkg/logger"
)

type SectionHandler struct {
	service *dashboard.Service
}

func NewSectionHandler(service *dashboard.Service) *SectionHandler {
	return &SectionHandler{service: service}
}

// degraded emits the section's failure payload with status 200. The
// browser renders the disconnected state from the body, not the status.
func degraded(c *fiber.Ctx, section string, err error) error {
	logger.Error("Section load failed",
		zap.String("section", section),
		zap.String("request_id", requestid.FromCtx(c)),
		zap.Error(err),
	)
	metrics.SectionLoads.WithLabelValues(section, "error").Inc()
	return c.JSON(fiber.Map{
		"connected": false,
		"error":     err.Error(),
	})
}

func loaded(section string) {
	metrics.SectionLoads.WithLabelValues(section, "ok").Inc()
}

func (h *SectionHandler) GetOverview(c *fiber.Ctx) error {
	view, err := h.service.Overview(c.Context())
	if err != nil {
		return degraded(c, "overview", err)
	}
	loaded("overview")
	return c.JSON(view)
}

func (h *SectionHandler) GetUsers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 0)

	view, err := h.service.Users(c.Context(), page, pageSize)
	if err != nil {
		return degraded(c, "users", err)
	}
	loaded("users")
	return c.JSON(view)
}

func (h *SectionHandler) GetTeams(c *fiber.Ctx) error {
	view, err := h.service.Teams(c.Context())
	if err != nil {
		return degraded(c, "teams", err)
	}
	loaded("teams")
	return c.JSON(view)
}

func (h *SectionHandler) GetTeamMembers(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 0)

	view, err := h.service.TeamMembers(c.Context(), page, pageSize)
	if err != nil {
		return degraded(c, "team_members", err)
	}
	loaded("team_members")
	return c.JSON(view)
}

func (h *SectionHandler) GetDetails(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 0)

	view, err := h.service.Details(c.Context(), page, pageSize)
	if err != nil {
		return degraded(c, "details", err)
	}
	loaded("details")
	return c.JSON(view)
}

func (h *SectionHandler) GetModels(c *fiber.Ctx) error {
	view, err := h.service.Models(c.Context())
	if err != nil {
		return degraded(c, "models", err)
	}
	loaded("models")
	return c.JSON(view)
}

func (h *SectionHandler) GetTrust(c *fiber.Ctx) error {
	days := c.QueryInt("days", 0)

	view, err := h.service.Trust(c.Context(), days)
	if err != nil {
		return degraded(c, "trust", err)
	}
	loaded("trust")
	return c.JSON(view)
}
