package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/scriptorium/scriptorium/pkg/models"
	"github.com/scriptorium/scriptorium/pkg/services"
)

// handleCreateProject handles project creation from a multipart form with
// a manuscript upload
func (h *Handler) handleCreateProject(c *fiber.Ctx) error {
	novelName := c.FormValue("novel_name")
	if strings.TrimSpace(novelName) == "" {
		return h.writeErrorResponse(c, fiber.StatusBadRequest, "invalid_project_name", "novel_name form field is required")
	}

	header, err := c.FormFile("upload")
	if err != nil {
		return h.writeErrorResponse(c, fiber.StatusBadRequest, "invalid_project_upload", "upload file is required")
	}
	file, err := header.Open()
	if err != nil {
		return h.writeErrorResponse(c, fiber.StatusBadRequest, "invalid_project_upload", fmt.Sprintf("failed to open upload: %v", err))
	}
	defer file.Close()

	project, err := h.appService.CreateProject(&services.ProjectCreation{
		NovelName:   novelName,
		DisplayName: c.FormValue("display_name"),
		Description: c.FormValue("description"),
		Tags:        parseTags(c.FormValue("tags")),
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Content:     file,
	})
	if err != nil {
		return h.writeServiceError(c, err)
	}

	return h.writeSuccessResponse(c, fiber.StatusCreated, fiber.Map{"project": project})
}

// handleListProjects handles project listing, optionally narrowed to a tag
func (h *Handler) handleListProjects(c *fiber.Ctx) error {
	projects, err := h.appService.ListProjects(c.Query("tag"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, fiber.Map{"items": projects})
}

// handleGetProject handles single project detail requests
func (h *Handler) handleGetProject(c *fiber.Ctx) error {
	detail, err := h.appService.GetProject(c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, detail)
}

// handleUpdateProject handles project metadata updates
func (h *Handler) handleUpdateProject(c *fiber.Ctx) error {
	var update models.ProjectUpdate
	if err := decodeBody(c, &update); err != nil {
		return h.writeServiceError(c, err)
	}

	project, err := h.appService.UpdateProject(c.Params("id"), &update)
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, project)
}

// handleDeleteProject handles project removal
func (h *Handler) handleDeleteProject(c *fiber.Ctx) error {
	id, err := h.appService.DeleteProject(c.Params("id"))
	if err != nil {
		return h.writeServiceError(c, err)
	}
	return h.writeSuccessResponse(c, fiber.StatusOK, fiber.Map{"identifier": id})
}
