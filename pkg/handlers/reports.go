package handlers

import (
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	"github.com/scriptorium/scriptorium/pkg/models"
)

// finalReportUpdate is the payload for manual final report edits
type finalReportUpdate struct {
	Content string `json:"content"`
}

// handleGenerateReport handles report pipeline triggers. The pipeline
// itself runs in the background; the response carries the queued tracker
// snapshot.
func (h *Handler) handleGenerateReport(c *fiber.Ctx) error {
	var req models.GenerateRequest
	if len(c.Body()) > 0 {
		if err := decodeBody(c, &req); err != nil {
			return h.writeServiceError(c, err)
		}
	}

	status, err := h.appService.StartReport(c.Params("id"), &req)
	if err != nil {
		return h.writeServiceError(c, err)
	}

	go func() {
		cascade := status.Cascade == nil || *status.Cascade
		if err := h.appService.RunReportPipeline(status.ProjectID, status.RequestedSegments, cascade); err != nil {
			log.WithError(err).WithField("project", status.ProjectID).Error("Failed to complete report pipeline")
		}
	}()

	return h.writeSuccessResponse(c, fiber.StatusAccepted, status)
}

// handleReportStatus handles tracker snapshot requests
func (h *Handler) handleReportStatus(c *fiber.Ctx) error {
	status, err := h.appService.GetReportStatus(c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, status)
}

// handleGetFinalReport handles reads of the compiled final report
func (h *Handler) handleGetFinalReport(c *fiber.Ctx) error {
	report, err := h.appService.GetFinalReport(c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, report)
}

// handleUpdateFinalReport handles manual final report edits. The tracker
// snapshot is returned so clients see the finalization stage completed.
func (h *Handler) handleUpdateFinalReport(c *fiber.Ctx) error {
	var payload finalReportUpdate
	if err := decodeBody(c, &payload); err != nil {
		return h.writeServiceError(c, err)
	}

	if _, err := h.appService.SaveFinalReport(c.Params("id"), payload.Content); err != nil {
		return h.writeServiceError(c, err)
	}

	status, err := h.appService.GetReportStatus(c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, status)
}
