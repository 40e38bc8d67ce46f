package repository

import (
	"gorm.io/gorm"

	"github.com/cardforgehq/cardforge/app/models"
)

// transactionRepository implements the TransactionRepository interface
type transactionRepository struct {
	db *gorm.DB
}

// NewTransactionRepository creates a new transaction repository instance
func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Create records one completed credit purchase
func (r *transactionRepository) Create(tx *models.Transaction) error {
	return r.db.Create(tx).Error
}

// GetByUserID returns a user's purchase history, newest first
func (r *transactionRepository) GetByUserID(userID string) ([]models.Transaction, error) {
	var txs []models.Transaction
	err := r.db.Where("user_id = ?", userID).
		Order("purchase_date DESC").
		Find(&txs).Error
	return txs, err
}
