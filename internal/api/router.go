package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rag-monitor/dashboard/internal/api/handlers"
	"github.com/rag-monitor/dashboard/internal/dashboard"
	"github.com/rag-monitor/dashboard/internal/metrics"
)

// Register mounts the dashboard routes on the app.
func Register(app *fiber.App, service *dashboard.Service) {
	sectionHandler := handlers.NewSectionHandler(service)
	historyHandler := handlers.NewHistoryHandler(service)
	systemHandler := handlers.NewSystemHandler(service)

	api := app.Group("/api/v1")

	api.Get("/overview", sectionHandler.GetOverview)
	api.Get("/users", sectionHandler.GetUsers)
	api.Get("/teams", sectionHandler.GetTeams)
	api.Get("/teams/members", sectionHandler.GetTeamMembers)
	api.Get("/details", sectionHandler.GetDetails)
	api.Get("/models", sectionHandler.GetModels)
	api.Get("/trust", sectionHandler.GetTrust)

	api.Get("/history", historyHandler.GetHistory)
	api.Get("/history/:id", historyHandler.GetHistoryDetail)
	api.Get("/filters", historyHandler.GetFilterOptions)

	api.Post("/refresh", systemHandler.Refresh)
	api.Get("/health", systemHandler.Health)

	app.Get("/metrics", metrics.Handler())
}
