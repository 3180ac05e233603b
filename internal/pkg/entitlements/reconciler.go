package entitlements

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

// Reconciler is the sole authority for access decisions. It reads the
// authoritative store and the local decision cache, produces a
// GrantDecision, and converges the cache toward the store.
//
// Reconcile never returns an error: infrastructure failures degrade into
// the decision's Reason field so callers can distinguish "denied" from
// "couldn't verify".
type Reconciler struct {
	repo  Repository
	cache DecisionCache

	storeTimeout    time.Duration
	stalenessWindow time.Duration
	now             func() time.Time
}

// NewReconciler creates a reconciler with env-configured policy windows.
func NewReconciler(repo Repository, cache DecisionCache) *Reconciler {
	return &Reconciler{
		repo:            repo,
		cache:           cache,
		storeTimeout:    StoreTimeoutFromEnv(),
		stalenessWindow: StalenessWindowFromEnv(),
		now:             time.Now,
	}
}

// NewReconcilerFromDB creates a reconciler from shared DB and Redis handles.
func NewReconcilerFromDB(db *gorm.DB, client *redis.Client) *Reconciler {
	return NewReconciler(NewRepository(db), NewRedisDecisionCache(client))
}

// Reconcile computes the access decision for one (user, question set)
// pair. The check order is fixed and is the core business rule:
//
//  1. free sets always grant, regardless of any stale cached denial
//  2. the grant with the latest non-expired coverage wins
//  3. store unreachable: fall back to the cache only within the
//     staleness window, otherwise fail closed
//  4. no grant
func (r *Reconciler) Reconcile(ctx context.Context, userID, questionSetID uint) GrantDecision {
	now := r.now()

	storeCtx, cancel := context.WithTimeout(ctx, r.storeTimeout)
	defer cancel()

	set, err := r.repo.GetQuestionSet(storeCtx, questionSetID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The set does not exist; there is nothing to grant.
			return r.commit(ctx, userID, questionSetID, GrantDecision{Reason: ReasonNoGrant}, now)
		}
		log.Warnf("reconcile user %d set %d: question set lookup failed: %v", userID, questionSetID, err)
		return r.fallback(ctx, userID, questionSetID, now)
	}

	if !set.IsPaid {
		return r.commit(ctx, userID, questionSetID, GrantDecision{HasAccess: true, Reason: ReasonFree}, now)
	}

	grants, err := r.repo.FindGrants(storeCtx, userID, questionSetID)
	if err != nil {
		log.Warnf("reconcile user %d set %d: grant query failed: %v", userID, questionSetID, err)
		return r.fallback(ctx, userID, questionSetID, now)
	}

	if best := selectActiveGrant(grants, now); best != nil {
		decision := GrantDecision{HasAccess: true, Reason: reasonForSource(best.Source)}
		if best.ExpiresAt != nil {
			days := remainingDays(*best.ExpiresAt, now)
			decision.RemainingDays = &days
		}
		return r.commit(ctx, userID, questionSetID, decision, now)
	}

	return r.commit(ctx, userID, questionSetID, GrantDecision{Reason: ReasonNoGrant}, now)
}

// ReconcileMany runs Reconcile for each question set and returns the
// decisions keyed by set id.
func (r *Reconciler) ReconcileMany(ctx context.Context, userID uint, questionSetIDs []uint) map[uint]GrantDecision {
	decisions := make(map[uint]GrantDecision, len(questionSetIDs))
	for _, id := range questionSetIDs {
		decisions[id] = r.Reconcile(ctx, userID, id)
	}
	return decisions
}

// commit writes the freshly computed decision back to the cache. The write
// happens even when the decision did not change: it resets the staleness
// clock that bounds the fallback window.
func (r *Reconciler) commit(ctx context.Context, userID, questionSetID uint, decision GrantDecision, now time.Time) GrantDecision {
	gen, err := r.cache.NextGeneration(ctx, userID)
	if err != nil {
		log.Warnf("reconcile user %d set %d: generation bump failed: %v", userID, questionSetID, err)
		return decision
	}
	entry := &CacheEntry{
		UserID:           userID,
		QuestionSetID:    questionSetID,
		HasAccess:        decision.HasAccess,
		RemainingDays:    decision.RemainingDays,
		Reason:           decision.Reason,
		ObservedAt:       now,
		SourceGeneration: gen,
	}
	if err := r.cache.Put(ctx, entry); err != nil {
		log.Warnf("reconcile user %d set %d: cache write failed: %v", userID, questionSetID, err)
	}
	return decision
}

// fallback resolves the decision from the cache when the store is
// unreachable. Paid content is never granted on unverifiable data: a hint
// older than the staleness window fails closed.
func (r *Reconciler) fallback(ctx context.Context, userID, questionSetID uint, now time.Time) GrantDecision {
	entry, err := r.cache.Get(ctx, userID, questionSetID)
	if err != nil {
		log.Warnf("reconcile user %d set %d: cache read failed: %v", userID, questionSetID, err)
		return GrantDecision{Reason: ReasonSourceUnavailable}
	}
	if entry == nil {
		return GrantDecision{Reason: ReasonSourceUnavailable}
	}
	if now.Sub(entry.ObservedAt) > r.stalenessWindow {
		return GrantDecision{Reason: ReasonNoGrant}
	}
	return GrantDecision{
		HasAccess:     entry.HasAccess,
		RemainingDays: entry.RemainingDays,
		Reason:        ReasonSourceUnavailable,
	}
}

// selectActiveGrant picks the grant with the latest non-expired coverage.
// A permanent grant (nil ExpiresAt) always wins.
func selectActiveGrant(grants []models.Grant, now time.Time) *models.Grant {
	var best *models.Grant
	for i := range grants {
		g := &grants[i]
		if !g.CoversAt(now) {
			continue
		}
		if g.ExpiresAt == nil {
			return g
		}
		if best == nil || best.ExpiresAt != nil && g.ExpiresAt.After(*best.ExpiresAt) {
			best = g
		}
	}
	return best
}

func reasonForSource(source string) Reason {
	switch source {
	case models.GrantSourceRedeemCode:
		return ReasonRedeemCode
	case models.GrantSourceFree:
		return ReasonFree
	default:
		return ReasonPurchase
	}
}

// remainingDays rounds the time until expiry up to whole days.
func remainingDays(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}
