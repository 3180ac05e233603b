package controllers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/repository"
	"github.com/quizdeck/quizdeck/internal/pkg/cache"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
	"github.com/quizdeck/quizdeck/internal/pkg/env"
	"github.com/quizdeck/quizdeck/internal/pkg/security"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

// HandleCheckAccess returns the reconciled access decision for the
// authenticated user and one question set.
func HandleCheckAccess(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	setID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid question set id"})
	}

	reconciler := entitlements.NewReconcilerFromDB(database.GetDB(), cache.GetClient())
	decision := reconciler.Reconcile(c.UserContext(), userCtx.UserID, setID)

	resp := fiber.Map{
		"question_set_id": setID,
		"decision":        decision,
	}

	// A positive decision comes with a short-lived token the content
	// endpoints accept instead of re-reconciling per question fetch.
	if decision.HasAccess {
		secret := env.GetEnv("CONTENT_TOKEN_SECRET", "")
		if secret != "" {
			token, err := security.GenerateAccessToken(userCtx.UserID, setID, string(decision.Reason), 15*time.Minute, secret)
			if err != nil {
				log.Warnf("failed to generate access token for user %d set %d: %v", userCtx.UserID, setID, err)
			} else {
				resp["access_token"] = token
			}
		}
	}

	return c.JSON(resp)
}

// HandleQuestionReachable reports whether one question of a set is reachable
// for the authenticated user, taking trial prefixes into account.
func HandleQuestionReachable(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
	}

	setID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid question set id"})
	}
	questionIndex, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid question index"})
	}

	set, err := repository.GetGlobalFactory().GetQuestionSetRepository().GetByID(setID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Question set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load question set"})
	}

	reconciler := entitlements.NewReconcilerFromDB(database.GetDB(), cache.GetClient())
	decision := reconciler.Reconcile(c.UserContext(), userCtx.UserID, setID)
	reachable := entitlements.IsQuestionReachable(questionIndex, set, decision)

	return c.JSON(fiber.Map{
		"question_set_id": setID,
		"question_index":  questionIndex,
		"reachable":       reachable,
		"decision":        decision,
	})
}

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	raw, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || raw == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(raw), nil
}
