package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rag-monitor/dashboard/internal/backend"
	"github.com/rag-monitor/dashboard/internal/dashboard"
	"github.com/rag-monitor/dashboard/internal/filter"
	"github.com/rag-monitor/dashboard/internal/metrics"
	"github.com/rag-monitor/dashboard/internal/middleware/requestid"
	"github.com/rag-monitor/dashboard/pkg/logger"
)

const dateParamLayout = "2006-01-02"

type HistoryHandler struct {
	service *dashboard.Service
}

func NewHistoryHandler(service *dashboard.Service) *HistoryHandler {
	return &HistoryHandler{service: service}
}

func (h *HistoryHandler) GetHistory(c *fiber.Ctx) error {
	criteria, err := criteriaFromQuery(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	page := c.QueryInt("page", 1)
	pageSize := c.QueryInt("pageSize", 0)

	view, svcErr := h.service.History(c.Context(), criteria, page, pageSize)
	if svcErr != nil {
		return degraded(c, "history", svcErr)
	}
	loaded("history")
	return c.JSON(view)
}

// GetHistoryDetail proxies the single-record view. Unlike the section
// endpoints this one passes real statuses through: the detail modal
// needs to distinguish a missing record from a dead backend.
func (h *HistoryHandler) GetHistoryDetail(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "record id is required",
		})
	}

	detail, err := h.service.HistoryDetail(c.Context(), id)
	if err != nil {
		var be *backend.BackendError
		if errors.As(err, &be) && be.StatusCode == fiber.StatusNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "record not found",
			})
		}
		logger.Error("Record detail fetch failed",
			zap.String("id", id),
			zap.String("request_id", requestid.FromCtx(c)),
			zap.Error(err),
		)
		metrics.SectionLoads.WithLabelValues("history_detail", "error").Inc()
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	loaded("history_detail")
	return c.JSON(detail)
}

func (h *HistoryHandler) GetFilterOptions(c *fiber.Ctx) error {
	options, err := h.service.Options(c.Context())
	if err != nil {
		return degraded(c, "filters", err)
	}
	loaded("filters")
	return c.JSON(options)
}

func criteriaFromQuery(c *fiber.Ctx) (filter.Criteria, error) {
	criteria := filter.Criteria{
		Search:        c.Query("search"),
		Person:        c.Query("person"),
		Team:          c.Query("team"),
		Model:         c.Query("model"),
		KnowledgeBase: c.Query("knowledgeBase"),
		Status:        c.Query("status"),
	}

	if raw := c.Query("startDate"); raw != "" {
		t, err := time.ParseInLocation(dateParamLayout, raw, time.Local)
		if err != nil {
			return filter.Criteria{}, errors.New("startDate must be YYYY-MM-DD")
		}
		criteria.StartDate = t
	}
	if raw := c.Query("endDate"); raw != "" {
		t, err := time.ParseInLocation(dateParamLayout, raw, time.Local)
		if err != nil {
			return filter.Criteria{}, errors.New("endDate must be YYYY-MM-DD")
		}
		criteria.EndDate = t
	}
	return criteria, nil
}
