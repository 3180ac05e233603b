package repository

import (
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

// grantRepository implements the GrantRepository interface
type grantRepository struct {
	db *gorm.DB
}

// NewGrantRepository creates a new grant repository instance
func NewGrantRepository(db *gorm.DB) GrantRepository {
	return &grantRepository{db: db}
}

// GetByUserID retrieves all grants held by a user, newest first
func (r *grantRepository) GetByUserID(userID uint) ([]models.Grant, error) {
	var grants []models.Grant
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&grants).Error
	return grants, err
}

// GetByUserAndQuestionSet retrieves a user's grants for one question set
func (r *grantRepository) GetByUserAndQuestionSet(userID, questionSetID uint) ([]models.Grant, error) {
	var grants []models.Grant
	err := r.db.Where("user_id = ? AND question_set_id = ?", userID, questionSetID).
		Order("created_at DESC").Find(&grants).Error
	return grants, err
}

// Count returns the total number of grants
func (r *grantRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Grant{}).Count(&count).Error
	return count, err
}
