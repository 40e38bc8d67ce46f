package repository

import (
	"github.com/cardforgehq/cardforge/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations.
// Users originate from the external identity provider; Upsert records the
// identity the first time it is seen and refreshes name/email afterwards.
type UserRepository interface {
	Upsert(user *models.User) error
	GetByID(id string) (*models.User, error)
	Count() (int64, error)
}

// ImageRepository defines the interface for image metadata operations
type ImageRepository interface {
	Create(image *models.ImageMetadata) error
	GetByID(id uint) (*models.ImageMetadata, error)
	GetRecentByUserID(userID string, limit int) ([]models.ImageMetadata, error)
	GetRecent(limit int) ([]models.ImageMetadata, error)
	CountByUserID(userID string) (int64, error)
}

// TransactionRepository defines the interface for credit purchase records
type TransactionRepository interface {
	Create(tx *models.Transaction) error
	GetByUserID(userID string) ([]models.Transaction, error)
}

// WebhookEventRepository defines the interface for webhook event persistence
// with provider-event-id deduplication.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// Repositories holds all repository instances
type Repositories struct {
	User         UserRepository
	Image        ImageRepository
	Transaction  TransactionRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		Image:        NewImageRepository(db),
		Transaction:  NewTransactionRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
