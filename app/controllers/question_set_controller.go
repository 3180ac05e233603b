package controllers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
	"github.com/quizdeck/quizdeck/app/repository"
	"github.com/quizdeck/quizdeck/internal/pkg/cache"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
	"github.com/quizdeck/quizdeck/internal/pkg/metrics/counter"
	"github.com/quizdeck/quizdeck/internal/pkg/usercontext"
)

const (
	defaultPageSize = 25
	maxPageSize     = 100
)

// HandleListQuestionSets returns a paginated catalog of question sets. For a
// logged-in caller every row carries the reconciled access decision.
func HandleListQuestionSets(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultPageSize)))
	if limit < 1 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := (page - 1) * limit

	repo := repository.GetGlobalFactory().GetQuestionSetRepository()
	sets, err := repo.List(offset, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load question sets"})
	}
	total, err := repo.Count()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to count question sets"})
	}

	items := make([]fiber.Map, 0, len(sets))
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		ids := make([]uint, 0, len(sets))
		for _, set := range sets {
			ids = append(ids, set.ID)
		}
		reconciler := entitlements.NewReconcilerFromDB(database.GetDB(), cache.GetClient())
		decisions := reconciler.ReconcileMany(c.UserContext(), userCtx.UserID, ids)
		for i := range sets {
			decision := decisions[sets[i].ID]
			items = append(items, questionSetItem(&sets[i], &decision))
		}
	} else {
		for i := range sets {
			items = append(items, questionSetItem(&sets[i], nil))
		}
	}

	return c.JSON(fiber.Map{
		"question_sets": items,
		"pagination": fiber.Map{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// HandleGetQuestionSet returns metadata for one question set.
func HandleGetQuestionSet(c *fiber.Ctx) error {
	setID, err := parseIDParam(c, "id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid question set id"})
	}

	set, err := repository.GetGlobalFactory().GetQuestionSetRepository().GetByID(setID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Question set not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Failed to load question set"})
	}

	// View counting is buffered in Redis and flushed in the background.
	if err := counter.AddQuestionSetView(set.ID); err != nil {
		log.Warnf("failed to count question set view: %v", err)
	}

	var decision *entitlements.GrantDecision
	userCtx := usercontext.GetUserContext(c)
	if userCtx.IsLoggedIn {
		reconciler := entitlements.NewReconcilerFromDB(database.GetDB(), cache.GetClient())
		d := reconciler.Reconcile(c.UserContext(), userCtx.UserID, setID)
		decision = &d
	}

	return c.JSON(questionSetItem(set, decision))
}

func questionSetItem(set *models.QuestionSet, decision *entitlements.GrantDecision) fiber.Map {
	item := fiber.Map{
		"id":                   set.ID,
		"title":                set.Title,
		"description":          set.Description,
		"is_paid":              set.IsPaid,
		"price":                set.Price,
		"trial_question_count": set.TrialQuestionCount,
		"total_question_count": set.TotalQuestionCount,
		"has_trial":            set.HasTrial(),
	}
	if decision != nil {
		item["decision"] = decision
	}
	return item
}
