package entitlements

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/quizdeck/quizdeck/app/models"
)

var (
	// ErrRedeemCodeNotFound is returned when no code matches the trimmed input.
	ErrRedeemCodeNotFound = errors.New("redeem code not found")
	// ErrRedeemCodeConsumed is returned when the code was already redeemed.
	ErrRedeemCodeConsumed = errors.New("redeem code already consumed")
)

// Repository provides the authoritative store operations used by the
// entitlement services.
type Repository interface {
	GetQuestionSet(ctx context.Context, id uint) (*models.QuestionSet, error)
	FindGrants(ctx context.Context, userID, questionSetID uint) ([]models.Grant, error)
	// FindGrantByOriginID returns (nil, nil) when no grant carries the origin id.
	FindGrantByOriginID(ctx context.Context, originID string) (*models.Grant, error)
	// InsertGrantIfAbsent atomically inserts the grant unless another grant
	// with the same origin id already exists. It returns the stored grant
	// and whether this call created it.
	InsertGrantIfAbsent(ctx context.Context, grant *models.Grant) (*models.Grant, bool, error)
	// ConsumeRedeemCode marks the code consumed and creates the matching
	// grant in one transaction.
	ConsumeRedeemCode(ctx context.Context, code string, userID uint, now time.Time) (*models.Grant, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlement repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetQuestionSet(ctx context.Context, id uint) (*models.QuestionSet, error) {
	var qs models.QuestionSet
	if err := r.db.WithContext(ctx).First(&qs, id).Error; err != nil {
		return nil, err
	}
	return &qs, nil
}

func (r *gormRepository) FindGrants(ctx context.Context, userID, questionSetID uint) ([]models.Grant, error) {
	var grants []models.Grant
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND question_set_id = ?", userID, questionSetID).
		Find(&grants).Error
	return grants, err
}

func (r *gormRepository) FindGrantByOriginID(ctx context.Context, originID string) (*models.Grant, error) {
	var grant models.Grant
	err := r.db.WithContext(ctx).Where("origin_id = ?", originID).First(&grant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *gormRepository) InsertGrantIfAbsent(ctx context.Context, grant *models.Grant) (*models.Grant, bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "origin_id"}},
		DoNothing: true,
	}).Create(grant)
	if tx.Error != nil {
		return nil, false, tx.Error
	}

	inserted := tx.RowsAffected > 0

	// Re-fetch so race losers observe the row the winning call committed.
	var stored models.Grant
	if err := r.db.WithContext(ctx).Where("origin_id = ?", grant.OriginID).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, inserted, nil
}

func (r *gormRepository) ConsumeRedeemCode(ctx context.Context, code string, userID uint, now time.Time) (*models.Grant, error) {
	code = strings.TrimSpace(code)

	var grant *models.Grant
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rc models.RedeemCode
		if err := tx.Where("code = ?", code).First(&rc).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRedeemCodeNotFound
			}
			return err
		}
		if rc.Consumed() {
			return ErrRedeemCodeConsumed
		}

		// Guarded update so two concurrent redemptions cannot both win.
		res := tx.Model(&models.RedeemCode{}).
			Where("id = ? AND consumed_at IS NULL", rc.ID).
			Updates(map[string]interface{}{
				"consumed_by_user_id": userID,
				"consumed_at":         now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrRedeemCodeConsumed
		}

		validity := time.Duration(rc.ValidityDays) * 24 * time.Hour
		if validity <= 0 {
			validity = DefaultValidityWindow
		}
		expiresAt := now.Add(validity)

		g := models.Grant{
			UserID:        userID,
			QuestionSetID: rc.QuestionSetID,
			Source:        models.GrantSourceRedeemCode,
			OriginID:      fmt.Sprintf("code:%s", rc.Code),
			ExpiresAt:     &expiresAt,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "origin_id"}},
			DoNothing: true,
		}).Create(&g).Error; err != nil {
			return err
		}

		var stored models.Grant
		if err := tx.Where("origin_id = ?", g.OriginID).First(&stored).Error; err != nil {
			return err
		}
		grant = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grant, nil
}
