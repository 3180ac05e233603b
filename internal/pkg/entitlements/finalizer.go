package entitlements

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

// Finalizer turns a succeeded payment into exactly one durable grant.
// The transaction id is the idempotence key: the unique index on
// origin_id is the only ordering primitive needed, no matter how many
// concurrent invocations race (client retry plus webhook retry).
type Finalizer struct {
	repo       Repository
	reconciler *Reconciler
	notifier   Publisher

	attempts int
	backoff  time.Duration
	validity time.Duration
	now      func() time.Time
}

// NewFinalizer creates a finalizer with env-configured validity window.
func NewFinalizer(repo Repository, reconciler *Reconciler, notifier Publisher) *Finalizer {
	return &Finalizer{
		repo:       repo,
		reconciler: reconciler,
		notifier:   notifier,
		attempts:   DefaultFinalizeAttempts,
		backoff:    defaultFinalizeBackoff,
		validity:   ValidityWindowFromEnv(),
		now:        time.Now,
	}
}

// NewFinalizerFromDB creates a finalizer from shared DB and Redis handles.
func NewFinalizerFromDB(db *gorm.DB, client *redis.Client) *Finalizer {
	repo := NewRepository(db)
	return NewFinalizer(repo, NewReconciler(repo, NewRedisDecisionCache(client)), NewRedisNotifier(client))
}

// FinalizePurchase records the grant for a settled payment. Calling it
// again with the same transaction id returns the already committed grant
// unchanged. The returned FinalizeError is non-nil only when the store
// kept failing after bounded retries; the payment itself is never rolled
// back, so that case must surface as "access pending" to the user.
func (f *Finalizer) FinalizePurchase(ctx context.Context, transactionID string, userID, questionSetID uint, amount float64) (*models.Grant, *FinalizeError) {
	txID := strings.TrimSpace(transactionID)

	// A caller disconnect must not abort the insert: the money has moved,
	// the grant commit is the irrevocable step.
	detached := context.WithoutCancel(ctx)

	var lastErr error
	insertAttempted := false

	for attempt := 0; attempt < f.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(f.backoff << (attempt - 1))
		}

		existing, err := f.repo.FindGrantByOriginID(detached, txID)
		if err != nil {
			lastErr = err
			continue
		}
		if existing != nil {
			// Idempotent replay: a retried network call or a duplicate
			// submission already committed this transaction.
			f.afterCommit(detached, userID, questionSetID)
			return existing, nil
		}

		insertAttempted = true
		expiresAt := f.now().Add(f.validity)
		grant := &models.Grant{
			UserID:        userID,
			QuestionSetID: questionSetID,
			Source:        models.GrantSourcePurchase,
			OriginID:      txID,
			Amount:        amount,
			ExpiresAt:     &expiresAt,
		}

		stored, inserted, err := f.repo.InsertGrantIfAbsent(detached, grant)
		if err != nil {
			lastErr = err
			continue
		}
		if !inserted {
			log.Infof("finalize %s: concurrent attempt committed first", txID)
		}
		f.afterCommit(detached, userID, questionSetID)
		return stored, nil
	}

	code := FinalizeRetriesExhausted
	if !insertAttempted {
		code = FinalizeStoreUnavailable
	}
	log.Errorf("finalize %s for user %d set %d: giving up after %d attempts: %v",
		txID, userID, questionSetID, f.attempts, lastErr)
	return nil, &FinalizeError{Code: code, Err: lastErr}
}

// afterCommit refreshes the local cache and fans the change out to other
// live sessions. Both are best effort: the grant is already durable.
func (f *Finalizer) afterCommit(ctx context.Context, userID, questionSetID uint) {
	if f.reconciler != nil {
		f.reconciler.Reconcile(ctx, userID, questionSetID)
	}
	if f.notifier != nil {
		if err := f.notifier.Publish(ctx, userID, questionSetID); err != nil {
			log.Warnf("grant change publish failed for user %d set %d: %v", userID, questionSetID, err)
		}
	}
}
