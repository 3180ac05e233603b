package models

import (
	"time"

	"gorm.io/gorm"
)

// QuestionSet is a sellable collection of quiz questions. Paid sets expose
// a prefix of TrialQuestionCount questions without a grant.
type QuestionSet struct {
	ID                 uint           `gorm:"primaryKey" json:"id"`
	Title              string         `gorm:"type:varchar(200);not null" json:"title" validate:"required,min=3,max=200"`
	Description        string         `gorm:"type:text" json:"description"`
	IsPaid             bool           `gorm:"default:false;index" json:"is_paid"`
	Price              float64        `gorm:"type:decimal(10,2);default:0" json:"price"`
	TrialQuestionCount int            `gorm:"default:0" json:"trial_question_count"`
	TotalQuestionCount int            `gorm:"default:0" json:"total_question_count"`
	ViewCount          int64          `gorm:"default:0" json:"view_count"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasTrial reports whether unauthenticated users can preview any questions.
// A trial count at or above the total makes the whole set effectively free;
// that is allowed and not an error.
func (qs *QuestionSet) HasTrial() bool {
	return qs.IsPaid && qs.TrialQuestionCount > 0
}
