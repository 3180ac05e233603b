package entitlements

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdeck/quizdeck/app/models"
)

func TestGrantChangedChannelName(t *testing.T) {
	assert.Equal(t, "entitlements:changed:7", GrantChangedChannel(7))
}

// decisionRecorder collects observer callbacks.
type decisionRecorder struct {
	mu        sync.Mutex
	decisions map[uint]GrantDecision
}

func newDecisionRecorder() *decisionRecorder {
	return &decisionRecorder{decisions: make(map[uint]GrantDecision)}
}

func (r *decisionRecorder) observe(questionSetID uint, decision GrantDecision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decisions[questionSetID] = decision
}

func (r *decisionRecorder) get(questionSetID uint) (GrantDecision, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.decisions[questionSetID]
	return d, ok
}

func TestSubscriberDispatchNotifiesObservers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSet(&models.QuestionSet{ID: 2, IsPaid: true})
	expires := now.Add(30 * 24 * time.Hour)
	store.addGrant(models.Grant{UserID: 7, QuestionSetID: 2, Source: models.GrantSourcePurchase, OriginID: "tx-1", ExpiresAt: &expires})

	s := NewSubscriber(nil, newTestReconciler(store, newFakeCache(), now), 7)
	recorder := newDecisionRecorder()
	s.OnDecision(recorder.observe)

	s.dispatch(context.Background(), 2)

	decision, ok := recorder.get(2)
	require.True(t, ok)
	assert.True(t, decision.HasAccess)
	assert.Equal(t, ReasonPurchase, decision.Reason)
}

func TestSubscriberResyncConvergesAfterMissedEvent(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSet(&models.QuestionSet{ID: 2, IsPaid: true})
	reconciler := newTestReconciler(store, newFakeCache(), now)

	s := NewSubscriber(nil, reconciler, 7)
	s.Watch(2)
	recorder := newDecisionRecorder()
	s.OnDecision(recorder.observe)

	// Initial state: no grant.
	s.Resync(context.Background())
	decision, ok := recorder.get(2)
	require.True(t, ok)
	assert.False(t, decision.HasAccess)

	// A purchase lands on another device while this session's connection
	// is down; the GrantChanged event is lost.
	expires := now.Add(180 * 24 * time.Hour)
	store.addGrant(models.Grant{UserID: 7, QuestionSetID: 2, Source: models.GrantSourcePurchase, OriginID: "tx-1", ExpiresAt: &expires})

	// Reconnect resync recovers the missed event and converges to the
	// same decision a directly notified client would compute.
	s.Resync(context.Background())
	decision, ok = recorder.get(2)
	require.True(t, ok)
	assert.True(t, decision.HasAccess)
	assert.Equal(t, reconciler.Reconcile(context.Background(), 7, 2), decision)
}

func TestSubscriberWatchUnwatch(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	store.addSet(&models.QuestionSet{ID: 1, IsPaid: false})
	store.addSet(&models.QuestionSet{ID: 2, IsPaid: true})

	s := NewSubscriber(nil, newTestReconciler(store, newFakeCache(), now), 7)
	s.Watch(1)
	s.Watch(2)
	s.Unwatch(2)
	recorder := newDecisionRecorder()
	s.OnDecision(recorder.observe)

	s.Resync(context.Background())

	_, sawFree := recorder.get(1)
	_, sawPaid := recorder.get(2)
	assert.True(t, sawFree)
	assert.False(t, sawPaid)
}
