package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/scriptorium/scriptorium/pkg/errors"
)

// decodeBody parses a JSON request body into dst
func decodeBody(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return fmt.Errorf("parsing request body: %v: %w", err, apperrors.ErrInvalidInput)
	}
	return nil
}

// parseTags splits a comma separated tag list, dropping empty entries
func parseTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(tag); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}
