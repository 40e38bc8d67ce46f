package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// User mirrors an identity issued by the external auth provider. The ID is
// the provider's opaque subject string; this service never creates identities
// of its own, it only records the ones it has seen.
type User struct {
	ID          string     `gorm:"primaryKey;type:varchar(191)" json:"id"`
	Name        string     `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Email       string     `gorm:"index;type:varchar(200)" json:"email" validate:"omitempty,email,max=200"`
	LastSeenAt  *time.Time `gorm:"type:timestamp;default:null" json:"last_seen_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}
