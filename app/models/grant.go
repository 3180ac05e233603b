package models

import "time"

const (
	GrantSourceFree       = "free"
	GrantSourcePurchase   = "purchase"
	GrantSourceRedeemCode = "redeem_code"
)

// Grant is the authoritative record that a user may access a question set.
// Grants are append-only: they are never mutated, only superseded by a newer
// row for the same question set. The unique index on origin_id is the
// concurrency guard that keeps purchase finalization idempotent.
type Grant struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"not null;index:idx_grants_user_set,priority:1" json:"user_id"`
	QuestionSetID uint       `gorm:"not null;index:idx_grants_user_set,priority:2" json:"question_set_id"`
	Source        string     `gorm:"type:varchar(20);not null" json:"source" validate:"oneof=free purchase redeem_code"`
	OriginID      string     `gorm:"type:varchar(191);not null;uniqueIndex:ux_grants_origin_id" json:"origin_id"`
	Amount        float64    `gorm:"type:decimal(10,2);default:0" json:"amount"`
	ExpiresAt     *time.Time `gorm:"type:timestamp;default:null;index" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

// CoversAt reports whether the grant is active at the given instant.
// A nil ExpiresAt means the grant is permanent.
func (g *Grant) CoversAt(now time.Time) bool {
	return g.ExpiresAt == nil || g.ExpiresAt.After(now)
}
