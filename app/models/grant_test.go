package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGrantCoversAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	permanent := &Grant{Source: GrantSourceFree}
	assert.True(t, permanent.CoversAt(now))

	future := now.Add(24 * time.Hour)
	active := &Grant{Source: GrantSourcePurchase, ExpiresAt: &future}
	assert.True(t, active.CoversAt(now))

	past := now.Add(-time.Second)
	expired := &Grant{Source: GrantSourcePurchase, ExpiresAt: &past}
	assert.False(t, expired.CoversAt(now))

	// Expiry boundary is exclusive: a grant expiring exactly now no longer covers.
	exact := &Grant{Source: GrantSourceRedeemCode, ExpiresAt: &now}
	assert.False(t, exact.CoversAt(now))
}

func TestQuestionSetHasTrial(t *testing.T) {
	free := &QuestionSet{IsPaid: false, TrialQuestionCount: 3}
	assert.False(t, free.HasTrial())

	paidNoTrial := &QuestionSet{IsPaid: true, TrialQuestionCount: 0}
	assert.False(t, paidNoTrial.HasTrial())

	paidTrial := &QuestionSet{IsPaid: true, TrialQuestionCount: 3, TotalQuestionCount: 10}
	assert.True(t, paidTrial.HasTrial())

	// Trial covering the whole set is allowed.
	allTrial := &QuestionSet{IsPaid: true, TrialQuestionCount: 10, TotalQuestionCount: 10}
	assert.True(t, allTrial.HasTrial())
}

func TestNewRedeemCode(t *testing.T) {
	code := NewRedeemCode(7, 90)
	assert.Contains(t, code.Code, "qdc_")
	assert.Equal(t, uint(7), code.QuestionSetID)
	assert.Equal(t, 90, code.ValidityDays)
	assert.False(t, code.Consumed())

	// Non-positive validity falls back to the default.
	fallback := NewRedeemCode(7, 0)
	assert.Equal(t, 180, fallback.ValidityDays)

	// Codes must be unique.
	other := NewRedeemCode(7, 90)
	assert.NotEqual(t, code.Code, other.Code)
}
