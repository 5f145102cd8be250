package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/scriptorium/scriptorium/pkg/services"
)

// splitExecuteRequest extends the split request with the overwrite flag
type splitExecuteRequest struct {
	services.SplitRequest
	Overwrite bool `json:"overwrite"`
}

// handlePreviewSplit handles split previews. Nothing is written; the
// response carries per-segment statistics only.
func (h *Handler) handlePreviewSplit(c *fiber.Ctx) error {
	var req services.SplitRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeServiceError(c, err)
	}

	preview, err := h.appService.PreviewSplit(&req)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, preview)
}

// handleExecuteSplit handles split execution, persisting segment files
// into the project workspace
func (h *Handler) handleExecuteSplit(c *fiber.Ctx) error {
	var req splitExecuteRequest
	if err := decodeBody(c, &req); err != nil {
		return h.writeServiceError(c, err)
	}

	result, err := h.appService.ExecuteSplit(&req.SplitRequest, req.Overwrite)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, result)
}
