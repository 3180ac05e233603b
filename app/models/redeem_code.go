package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RedeemCode is a one-time code that converts into a grant for a single
// question set. Consumption is single-use; the consumed_at column is the
// guard against double redemption.
type RedeemCode struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	Code             string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"code"`
	QuestionSetID    uint       `gorm:"not null;index" json:"question_set_id"`
	ValidityDays     int        `gorm:"default:180" json:"validity_days"`
	ConsumedByUserID *uint      `gorm:"index" json:"consumed_by_user_id,omitempty"`
	ConsumedAt       *time.Time `gorm:"type:timestamp;default:null" json:"consumed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// NewRedeemCode creates an unconsumed code for a question set.
func NewRedeemCode(questionSetID uint, validityDays int) *RedeemCode {
	if validityDays <= 0 {
		validityDays = 180
	}
	return &RedeemCode{
		Code:          "qdc_" + strings.ReplaceAll(uuid.New().String(), "-", ""),
		QuestionSetID: questionSetID,
		ValidityDays:  validityDays,
	}
}

// Consumed reports whether the code has already been redeemed.
func (rc *RedeemCode) Consumed() bool {
	return rc.ConsumedAt != nil
}
