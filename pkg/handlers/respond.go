package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
	"github.com/scriptorium/scriptorium/pkg/services"
	"github.com/scriptorium/scriptorium/pkg/splitter"
)

// ResponseError carries the machine readable part of a failed response
type ResponseError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ResponseEnvelope is the canonical wrapper around API payloads
type ResponseEnvelope struct {
	Success   bool           `json:"success"`
	Data      interface{}    `json:"data"`
	Error     *ResponseError `json:"error"`
	Timestamp time.Time      `json:"timestamp"`
}

func (h *Handler) writeSuccessResponse(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(ResponseEnvelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func (h *Handler) writeErrorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(ResponseEnvelope{
		Success: false,
		Error: &ResponseError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC(),
	})
}

// writeServiceError translates a service error into its envelope code and
// HTTP status. Unexpected errors are logged before being reported.
func (h *Handler) writeServiceError(c *fiber.Ctx, err error) error {
	status, code := classifyError(err)
	if status >= fiber.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Method(),
			"path":   c.Path(),
		}).Error("Request failed")
	}
	return h.writeErrorResponse(c, status, code, err.Error())
}

// classifyError resolves the HTTP status and envelope code of an error.
// The specific sentinels come first; several of them wrap the generic
// ones further down.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrInvalidProjectName):
		return fiber.StatusBadRequest, "invalid_project_name"
	case errors.Is(err, services.ErrInvalidProjectUpload):
		return fiber.StatusBadRequest, "invalid_project_upload"
	case errors.Is(err, splitter.ErrUnknownStrategy):
		return fiber.StatusBadRequest, "splitter.invalid_strategy"
	case errors.Is(err, splitter.ErrInvalidParams), errors.Is(err, splitter.ErrEmptyText):
		return fiber.StatusBadRequest, "splitter.invalid_configuration"
	case errors.Is(err, services.ErrInvalidSplitProject):
		return fiber.StatusBadRequest, "splitter.invalid_project"
	case errors.Is(err, services.ErrSplitExecution):
		return fiber.StatusConflict, "splitter.execution_failure"
	case errors.Is(err, apperrors.ErrTaskConflict):
		return fiber.StatusConflict, "task_conflict"
	case errors.Is(err, apperrors.ErrWorkspaceNotReady):
		return fiber.StatusConflict, "workspace_not_ready"
	case errors.Is(err, apperrors.ErrReportMissing):
		return fiber.StatusNotFound, "final_report_missing"
	case errors.Is(err, apperrors.ErrAlreadyExists):
		return fiber.StatusConflict, "project_exists"
	case errors.Is(err, apperrors.ErrNotFound):
		return fiber.StatusNotFound, "project_not_found"
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return fiber.StatusBadRequest, "invalid_input"
	default:
		return fiber.StatusInternalServerError, "internal_error"
	}
}
