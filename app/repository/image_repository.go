package repository

import (
	"gorm.io/gorm"

	"github.com/cardforgehq/cardforge/app/models"
)

// imageRepository implements the ImageRepository interface
type imageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new image metadata repository instance
func NewImageRepository(db *gorm.DB) ImageRepository {
	return &imageRepository{db: db}
}

// Create writes one immutable metadata record
func (r *imageRepository) Create(image *models.ImageMetadata) error {
	return r.db.Create(image).Error
}

// GetByID retrieves a metadata record by its ID
func (r *imageRepository) GetByID(id uint) (*models.ImageMetadata, error) {
	var image models.ImageMetadata
	err := r.db.First(&image, id).Error
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// GetRecentByUserID returns the newest records owned by a user
func (r *imageRepository) GetRecentByUserID(userID string, limit int) ([]models.ImageMetadata, error) {
	var images []models.ImageMetadata
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&images).Error
	return images, err
}

// GetRecent returns the newest records across all users
func (r *imageRepository) GetRecent(limit int) ([]models.ImageMetadata, error) {
	var images []models.ImageMetadata
	err := r.db.Order("created_at DESC").Limit(limit).Find(&images).Error
	return images, err
}

// CountByUserID returns the number of records owned by a user
func (r *imageRepository) CountByUserID(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.ImageMetadata{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}
