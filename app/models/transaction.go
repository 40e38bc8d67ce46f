package models

import "time"

// Transaction records one completed credit purchase. Amounts are in cents,
// exactly as the payment provider reports them.
type Transaction struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           string    `gorm:"type:varchar(191);index;not null" json:"user_id"`
	SessionID        string    `gorm:"type:varchar(191);index" json:"session_id"`
	CreditsPurchased int       `gorm:"not null" json:"credits_purchased"`
	AmountPaid       int64     `gorm:"not null" json:"amount_paid"`
	PurchaseDate     time.Time `gorm:"autoCreateTime" json:"purchase_date"`
}
