package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/quizdeck/quizdeck/app/models"
	"github.com/quizdeck/quizdeck/internal/pkg/entitlements"
)

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	now := time.Date(2024, 5, 1, 12, 34, 56, 0, time.Local)
	formatted := formatTimePtr(&now)
	assert.IsType(t, "", formatted)

	expected := now.UTC().Format(time.RFC3339)
	assert.Equal(t, expected, formatted)
}

func TestQuestionSetItem(t *testing.T) {
	set := &models.QuestionSet{
		ID:                 3,
		Title:              "History 101",
		IsPaid:             true,
		Price:              9.99,
		TrialQuestionCount: 3,
		TotalQuestionCount: 40,
	}

	item := questionSetItem(set, nil)
	assert.Equal(t, uint(3), item["id"])
	assert.Equal(t, true, item["has_trial"])
	assert.NotContains(t, item, "decision")

	decision := entitlements.GrantDecision{HasAccess: true, Reason: entitlements.ReasonPurchase}
	item = questionSetItem(set, &decision)
	assert.Equal(t, &decision, item["decision"])
}
