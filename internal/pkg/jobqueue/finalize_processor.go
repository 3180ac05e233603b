package jobqueue

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/quizdeck/quizdeck/internal/pkg/cache"
	"github.com/quizdeck/quizdeck/internal/pkg/database"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
	"github.com/quizdeck/quizdeck/internal/pkg/payments"
)

// processFinalizePurchaseJob retries purchase finalization for a payment
// event whose synchronous finalize path gave up. The grant insert is keyed
// on the transaction id, so replaying a job that already succeeded is a
// no-op that returns the existing grant.
func (q *Queue) processFinalizePurchaseJob(ctx context.Context, job *Job) error {
	payload, err := FinalizePurchaseJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid finalize payload: %w", err)
	}
	if payload.TransactionID == "" || payload.UserID == 0 || payload.QuestionSetID == 0 {
		return fmt.Errorf("finalize payload incomplete: tx=%q user=%d set=%d",
			payload.TransactionID, payload.UserID, payload.QuestionSetID)
	}

	finalizer := entitlements.NewFinalizerFromDB(database.GetDB(), cache.GetClient())
	grant, finErr := finalizer.FinalizePurchase(ctx, payload.TransactionID, payload.UserID, payload.QuestionSetID, payload.Amount)
	if finErr != nil {
		return finErr
	}

	log.Infof("[JobQueue] Deferred finalize succeeded: tx=%s grant=%d", payload.TransactionID, grant.ID)

	if payload.PaymentEventID != 0 {
		svc := payments.NewServiceFromDB(database.GetDB())
		if err := svc.MarkProcessed(ctx, payload.PaymentEventID, nil); err != nil {
			log.Warnf("[JobQueue] Failed to mark payment event %d processed: %v", payload.PaymentEventID, err)
		}
	}
	return nil
}
