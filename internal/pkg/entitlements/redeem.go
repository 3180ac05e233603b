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

// Redeemer consumes one-time codes and turns them into grants. It is the
// second grant-creation path next to the purchase finalizer and shares its
// post-commit behavior: refresh the cache, notify other sessions.
type Redeemer struct {
	repo       Repository
	reconciler *Reconciler
	notifier   Publisher
	now        func() time.Time
}

func NewRedeemer(repo Repository, reconciler *Reconciler, notifier Publisher) *Redeemer {
	return &Redeemer{
		repo:       repo,
		reconciler: reconciler,
		notifier:   notifier,
		now:        time.Now,
	}
}

// NewRedeemerFromDB creates a redeemer from shared DB and Redis handles.
func NewRedeemerFromDB(db *gorm.DB, client *redis.Client) *Redeemer {
	repo := NewRepository(db)
	return NewRedeemer(repo, NewReconciler(repo, NewRedisDecisionCache(client)), NewRedisNotifier(client))
}

// Redeem consumes the code for the user. Codes match on exact, trimmed
// string equality. Returns ErrRedeemCodeNotFound or ErrRedeemCodeConsumed
// for the two expected failure modes.
func (r *Redeemer) Redeem(ctx context.Context, code string, userID uint) (*models.Grant, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrRedeemCodeNotFound
	}

	grant, err := r.repo.ConsumeRedeemCode(ctx, code, userID, r.now())
	if err != nil {
		return nil, err
	}

	// Best effort, mirroring the finalizer: the grant is already durable.
	if r.reconciler != nil {
		r.reconciler.Reconcile(ctx, userID, grant.QuestionSetID)
	}
	if r.notifier != nil {
		if err := r.notifier.Publish(ctx, userID, grant.QuestionSetID); err != nil {
			log.Warnf("grant change publish failed for user %d set %d: %v", userID, grant.QuestionSetID, err)
		}
	}
	return grant, nil
}
