package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/repository"
	"github.com/quizdeck/quizdeck/internal/pkg/security"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

// HandleGetQuestionSetContent serves the full content of a question set to a
// caller holding a valid access token for it. The token middleware already
// proved access, so no reconciliation runs here.
func HandleGetQuestionSetContent(c *fiber.Ctx) error {
	claims, ok := c.Locals(usercontext.KeyContentTokenClaims).(*security.AccessTokenClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing access token"})
	}

	set, err := repository.GetGlobalFactory().GetQuestionSetRepository().GetByID(claims.QuestionSetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Question set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load question set"})
	}

	item := questionSetItem(set, nil)
	item["reachable_question_count"] = set.TotalQuestionCount
	item["access_reason"] = claims.Reason

	return c.JSON(item)
}
