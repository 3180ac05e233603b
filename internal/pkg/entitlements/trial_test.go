package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quizdeck/quizdeck/app/models"
)

func TestIsQuestionReachableTrialBoundary(t *testing.T) {
	set := &models.QuestionSet{ID: 2, IsPaid: true, TrialQuestionCount: 3, TotalQuestionCount: 10}
	denied := GrantDecision{Reason: ReasonNoGrant}

	// Monotonic: everything below the trial count is reachable, nothing at
	// or above it is.
	for i := 0; i < 3; i++ {
		assert.True(t, IsQuestionReachable(i, set, denied), "index %d should be reachable", i)
	}
	for i := 3; i < 10; i++ {
		assert.False(t, IsQuestionReachable(i, set, denied), "index %d should be gated", i)
	}
}

func TestIsQuestionReachableWithGrant(t *testing.T) {
	set := &models.QuestionSet{ID: 2, IsPaid: true, TrialQuestionCount: 0, TotalQuestionCount: 10}
	granted := GrantDecision{HasAccess: true, Reason: ReasonPurchase}

	for _, i := range []int{0, 5, 9, 100} {
		assert.True(t, IsQuestionReachable(i, set, granted))
	}
}

func TestIsQuestionReachableNoTrial(t *testing.T) {
	set := &models.QuestionSet{ID: 2, IsPaid: true, TrialQuestionCount: 0, TotalQuestionCount: 10}
	denied := GrantDecision{Reason: ReasonNoGrant}

	assert.False(t, IsQuestionReachable(0, set, denied))
}

func TestIsQuestionReachableTrialCoversWholeSet(t *testing.T) {
	// Trial count at or above the total is allowed: effectively free.
	set := &models.QuestionSet{ID: 2, IsPaid: true, TrialQuestionCount: 10, TotalQuestionCount: 10}
	denied := GrantDecision{Reason: ReasonNoGrant}

	for i := 0; i < 10; i++ {
		assert.True(t, IsQuestionReachable(i, set, denied))
	}
}

func TestIsQuestionReachableFreeSet(t *testing.T) {
	set := &models.QuestionSet{ID: 1, IsPaid: false}
	denied := GrantDecision{Reason: ReasonNoGrant}

	assert.True(t, IsQuestionReachable(42, set, denied))
}

func TestIsQuestionReachableNegativeIndex(t *testing.T) {
	set := &models.QuestionSet{ID: 2, IsPaid: true, TrialQuestionCount: 3}

	assert.False(t, IsQuestionReachable(-1, set, GrantDecision{Reason: ReasonNoGrant}))
}

func TestIsQuestionReachableNilSet(t *testing.T) {
	assert.False(t, IsQuestionReachable(0, nil, GrantDecision{Reason: ReasonNoGrant}))
	assert.True(t, IsQuestionReachable(0, nil, GrantDecision{HasAccess: true, Reason: ReasonPurchase}))
}
