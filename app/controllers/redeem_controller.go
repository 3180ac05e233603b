package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/quizdeck/quizdeck/internal/pkg/cache"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

type redeemRequest struct {
	Code string `json:"code"`
}

// HandleRedeemCode consumes a redeem code for the authenticated user and
// returns the resulting grant.
func HandleRedeemCode(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	var req redeemRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}

	redeemer := entitlements.NewRedeemerFromDB(database.GetDB(), cache.GetClient())
	grant, err := redeemer.Redeem(c.UserContext(), req.Code, userCtx.UserID)
	if err != nil {
		switch {
		case errors.Is(err, entitlements.ErrRedeemCodeNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Unknown redeem code"})
		case errors.Is(err, entitlements.ErrRedeemCodeConsumed):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "conflict", "message": "Redeem code already used"})
		default:
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to redeem code"})
		}
	}

	return c.JSON(fiber.Map{
		"ok": true,
		"grant": fiber.Map{
			"id":              grant.ID,
			"question_set_id": grant.QuestionSetID,
			"source":          grant.Source,
			"expires_at":      formatTimePtr(grant.ExpiresAt),
		},
	})
}
