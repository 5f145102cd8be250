package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scriptorium/scriptorium/pkg/buildinfo"
	"github.com/scriptorium/scriptorium/pkg/config"
	"github.com/scriptorium/scriptorium/pkg/services"
)

// Handler contains all HTTP handlers
type Handler struct {
	appService *services.AppService
	settings   *config.Settings
}

func NewHandler(appService *services.AppService, settings *config.Settings) *Handler {
	return &Handler{
		appService: appService,
		settings:   settings,
	}
}

// RegisterRoutes attaches the API surface to the fiber application. The
// static mount and the NotFound fallback are registered by the caller so
// they keep their precedence relative to these routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	app.Use(h.apiKeyAuth())

	app.Get("/", h.handleRoot)
	app.Get("/health", h.handleHealth)

	projects := app.Group("/projects")
	projects.Post("/", h.handleCreateProject)
	projects.Get("/", h.handleListProjects)
	projects.Get("/:id", h.handleGetProject)
	projects.Put("/:id", h.handleUpdateProject)
	projects.Delete("/:id", h.handleDeleteProject)

	reports := projects.Group("/:id/reports")
	reports.Post("/generate", h.handleGenerateReport)
	reports.Get("/status", h.handleReportStatus)
	reports.Get("/final", h.handleGetFinalReport)
	reports.Put("/final", h.handleUpdateFinalReport)

	split := app.Group("/splitter")
	split.Post("/preview", h.handlePreviewSplit)
	split.Post("/execute", h.handleExecuteSplit)

	settings := app.Group("/settings")
	settings.Get("/", h.handleGetSettings)
	settings.Put("/", h.handleUpdateSettings)
	settings.Post("/agents/reload", h.handleReloadAgents)
}

// NotFound responds to unmatched routes with an enveloped 404.
func (h *Handler) NotFound(c *fiber.Ctx) error {
	return h.writeErrorResponse(c, fiber.StatusNotFound, "not_found", "The requested endpoint does not exist")
}

// handleRoot handles service identity requests
func (h *Handler) handleRoot(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"name":        h.settings.AppName,
		"version":     buildinfo.Version,
		"environment": h.settings.Environment,
	})
}

// handleHealth handles liveness checks. The payload is fixed; it reports
// that the process serves traffic, not that dependencies are reachable.
func (h *Handler) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
