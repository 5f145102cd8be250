package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scriptorium/scriptorium/pkg/models"
)

// redactSettings hides the stored provider key before it crosses the API
func redactSettings(settings *models.AppSettings) models.AppSettings {
	redacted := *settings
	redacted.Provider = settings.Provider.Redacted()
	return redacted
}

// handleGetSettings handles reads of the persisted application settings
func (h *Handler) handleGetSettings(c *fiber.Ctx) error {
	settings, err := h.appService.GetSettings()
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, redactSettings(settings))
}

// handleUpdateSettings handles settings overrides. Omitted fields keep
// their persisted values.
func (h *Handler) handleUpdateSettings(c *fiber.Ctx) error {
	var update models.SettingsUpdate
	if err := decodeBody(c, &update); err != nil {
		return h.writeServiceError(c, err)
	}

	settings, err := h.appService.UpdateSettings(&update)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, redactSettings(settings))
}

// handleReloadAgents handles forced reloads of the agents manifest
func (h *Handler) handleReloadAgents(c *fiber.Ctx) error {
	reload, err := h.appService.ReloadManifest()
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, reload)
}
