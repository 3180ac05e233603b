package repository

import (
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

// questionSetRepository implements the QuestionSetRepository interface
type questionSetRepository struct {
	db *gorm.DB
}

// NewQuestionSetRepository creates a new question set repository instance
func NewQuestionSetRepository(db *gorm.DB) QuestionSetRepository {
	return &questionSetRepository{db: db}
}

// Create creates a new question set in the database
func (r *questionSetRepository) Create(set *models.QuestionSet) error {
	return r.db.Create(set).Error
}

// GetByID retrieves a question set by its ID
func (r *questionSetRepository) GetByID(id uint) (*models.QuestionSet, error) {
	var set models.QuestionSet
	err := r.db.First(&set, id).Error
	if err != nil {
		return nil, err
	}
	return &set, nil
}

// Update updates an existing question set
func (r *questionSetRepository) Update(set *models.QuestionSet) error {
	return r.db.Save(set).Error
}

// Delete soft deletes a question set by its ID
func (r *questionSetRepository) Delete(id uint) error {
	return r.db.Delete(&models.QuestionSet{}, id).Error
}

// List retrieves a paginated list of question sets
func (r *questionSetRepository) List(offset, limit int) ([]models.QuestionSet, error) {
	var sets []models.QuestionSet
	err := r.db.Offset(offset).Limit(limit).Order("id ASC").Find(&sets).Error
	return sets, err
}

// Count returns the total number of question sets
func (r *questionSetRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.QuestionSet{}).Count(&count).Error
	return count, err
}
