package entitlements

import "github.com/quizdeck/quizdeck/app/models"

// IsQuestionReachable decides whether one question of a set may be shown
// given the current access decision. Pure function; callers must re-evaluate
// it on every navigation attempt (including direct jumps), because the grant
// can change mid-session through the change notifier.
//
// A TrialQuestionCount of zero gates every question. A trial count at or
// above the total makes the whole set reachable despite being paid.
func IsQuestionReachable(questionIndex int, set *models.QuestionSet, decision GrantDecision) bool {
	if decision.HasAccess {
		return true
	}
	if set == nil {
		return false
	}
	if !set.IsPaid {
		return true
	}
	return questionIndex >= 0 && questionIndex < set.TrialQuestionCount
}
