package repository

import (
	"gorm.io/gorm"

	"github.com/quizdeck/quizdeck/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// QuestionSetRepository defines the interface for question set database operations
type QuestionSetRepository interface {
	Create(set *models.QuestionSet) error
	GetByID(id uint) (*models.QuestionSet, error)
	Update(set *models.QuestionSet) error
	Delete(id uint) error
	List(offset, limit int) ([]models.QuestionSet, error)
	Count() (int64, error)
}

// GrantRepository defines the interface for reading grant rows outside the
// reconciliation path (admin listing, user purchase history).
type GrantRepository interface {
	GetByUserID(userID uint) ([]models.Grant, error)
	GetByUserAndQuestionSet(userID, questionSetID uint) ([]models.Grant, error)
	Count() (int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User        UserRepository
	QuestionSet QuestionSetRepository
	Grant       GrantRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:        NewUserRepository(db),
		QuestionSet: NewQuestionSetRepository(db),
		Grant:       NewGrantRepository(db),
	}
}
