package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/quizdeck/quizdeck/app/models"
	"github.com/quizdeck/quizdeck/app/repository"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
)

type createQuestionSetRequest struct {
	Title              string  `json:"title"`
	Description        string  `json:"description"`
	IsPaid             bool    `json:"is_paid"`
	Price              float64 `json:"price"`
	TrialQuestionCount int     `json:"trial_question_count"`
	TotalQuestionCount int     `json:"total_question_count"`
}

type createRedeemCodeRequest struct {
	QuestionSetID uint `json:"question_set_id"`
	ValidityDays  int  `json:"validity_days"`
	Count         int  `json:"count"`
}

// HandleAdminCreateQuestionSet creates a new question set.
func HandleAdminCreateQuestionSet(c *fiber.Ctx) error {
	var req createQuestionSetRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	set := &models.QuestionSet{
		Title:              strings.TrimSpace(req.Title),
		Description:        strings.TrimSpace(req.Description),
		IsPaid:             req.IsPaid,
		Price:              req.Price,
		TrialQuestionCount: req.TrialQuestionCount,
		TotalQuestionCount: req.TotalQuestionCount,
	}
	if set.TrialQuestionCount < 0 || set.TotalQuestionCount < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Question counts must not be negative"})
	}

	if err := repository.GetGlobalFactory().GetQuestionSetRepository().Create(set); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create question set"})
	}

	return c.Status(fiber.StatusCreated).JSON(questionSetItem(set, nil))
}

// HandleAdminCreateRedeemCodes mints a batch of redeem codes for a question set.
func HandleAdminCreateRedeemCodes(c *fiber.Ctx) error {
	var req createRedeemCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	if req.QuestionSetID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "question_set_id is required"})
	}
	count := req.Count
	if count < 1 {
		count = 1
	}
	if count > 1000 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "At most 1000 codes per batch"})
	}

	if _, err := repository.GetGlobalFactory().GetQuestionSetRepository().GetByID(req.QuestionSetID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Question set not found"})
	}

	db := database.GetDB()
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code := models.NewRedeemCode(req.QuestionSetID, req.ValidityDays)
		if err := db.Create(code).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to create redeem codes"})
		}
		codes = append(codes, code.Code)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"question_set_id": req.QuestionSetID,
		"codes":           codes,
	})
}
