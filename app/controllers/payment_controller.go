package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/quizdeck/quizdeck/internal/pkg/cache"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
	"github.com/quizdeck/quizdeck/internal/pkg/env"
	"github.com/quizdeck/quizdeck/internal/pkg/jobqueue"
	"github.com/quizdeck/quizdeck/internal/pkg/payments"
)

var webhookValidator = validator.New()

// webhookPayload is the provider-neutral body of a payment webhook call.
type webhookPayload struct {
	TransactionID string  `json:"transaction_id" validate:"required,max=191"`
	UserID        uint    `json:"user_id" validate:"required"`
	QuestionSetID uint    `json:"question_set_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"gte=0"`
	Status        string  `json:"status" validate:"required,oneof=succeeded failed pending"`
}

// HandlePaymentWebhook ingests provider payment events, deduplicates them and
// finalizes purchases for succeeded captures.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	provider := strings.TrimSpace(c.Get("X-Payment-Provider"))
	if provider == "" {
		provider = "default"
	}
	eventType := strings.TrimSpace(c.Get("X-Payment-Event"))
	eventID := strings.TrimSpace(c.Get("X-Payment-Event-ID"))
	signature := strings.TrimSpace(c.Get("X-Payment-Signature"))
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	svc := payments.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := payments.VerifyWebhookSignature(rawBody, signature, secret)
	created, stored, err := svc.RecordEvent(ctx, payments.EventInput{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       eventType,
		TransactionID:   payload.TransactionID,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if !created {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = svc.MarkProcessed(ctx, stored.ID, errors.New("invalid webhook signature"))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}

	if err := webhookValidator.Struct(payload); err != nil {
		_ = svc.MarkProcessed(ctx, stored.ID, err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	// Failed and pending captures are recorded but never create grants.
	if payload.Status != payments.StatusSucceeded {
		_ = svc.MarkProcessed(ctx, stored.ID, nil)
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	finalizer := entitlements.NewFinalizerFromDB(database.GetDB(), cache.GetClient())
	grant, finErr := finalizer.FinalizePurchase(ctx, payload.TransactionID, payload.UserID, payload.QuestionSetID, payload.Amount)
	if finErr != nil {
		// Hand off to the background queue; the grant insert is keyed on the
		// transaction id so replays stay idempotent.
		jobPayload := jobqueue.FinalizePurchaseJobPayload{
			PaymentEventID: stored.ID,
			TransactionID:  payload.TransactionID,
			UserID:         payload.UserID,
			QuestionSetID:  payload.QuestionSetID,
			Amount:         payload.Amount,
		}
		if _, qErr := jobqueue.GetManager().GetQueue().EnqueueJob(jobqueue.JobTypeFinalizePurchase, jobPayload.ToMap()); qErr != nil {
			log.Errorf("failed to enqueue deferred finalize for tx %s: %v", payload.TransactionID, qErr)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"ok":      false,
			"pending": true,
			"code":    finErr.Code,
		})
	}
	_ = svc.MarkProcessed(ctx, stored.ID, nil)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":       true,
		"grant_id": grant.ID,
	})
}
