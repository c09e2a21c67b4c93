package study

import (
	"strings"

	"github.com/kapsa-app/backend/internal/models"
	"github.com/kapsa-app/backend/internal/validate"
)

const maxPromptMaterials = 5

// materialBlock renders course materials as prompt context, each body
// clipped to perMaterialLimit characters.
func materialBlock(materials []models.CourseMaterial, perMaterialLimit int) string {
	blocks := make([]string, 0, len(materials))
	for _, m := range materials {
		blocks = append(blocks, "--- "+m.Title+" ---\n"+validate.Truncate(m.Content, perMaterialLimit))
	}
	return strings.Join(blocks, "\n\n")
}

// allContent concatenates raw material text for language detection.
func allContent(materials []models.CourseMaterial) string {
	parts := make([]string, 0, len(materials))
	for _, m := range materials {
		parts = append(parts, m.Content)
	}
	return strings.Join(parts, " ")
}
