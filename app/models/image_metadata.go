package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSON stores raw JSON documents in the database.
type JSON json.RawMessage

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil
	}

	// Validate JSON before returning
	var temp interface{}
	if err := json.Unmarshal(j, &temp); err != nil {
		return "{}", nil
	}

	return string(j), nil
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = JSON("{}")
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("invalid scan source")
	}
	*j = JSON(bytes)
	return nil
}

// MarshalJSON implements the json.Marshaler interface
func (j JSON) MarshalJSON() ([]byte, error) {
	if len(j) == 0 {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (j *JSON) UnmarshalJSON(data []byte) error {
	*j = JSON(data)
	return nil
}

const (
	ImageSourceGenerated = "generated"
	ImageSourceUpload    = "upload"
)

// ImageMetadata is the provenance record for one stored image. Written once
// per successful generation or upload, immutable afterwards. ImageURL is the
// provider's ephemeral URL, BackblazeURL the durable copy in object storage.
type ImageMetadata struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Prompt          string    `gorm:"type:text" json:"prompt"`
	ImageURL        string    `gorm:"type:varchar(2048)" json:"image_url"`
	BackblazeURL    string    `gorm:"type:varchar(2048)" json:"backblaze_url"`
	ThumbnailURL    string    `gorm:"type:varchar(2048)" json:"thumbnail_url"`
	Seed            int64     `gorm:"type:bigint" json:"seed"`
	Width           int       `gorm:"type:int" json:"width"`
	Height          int       `gorm:"type:int" json:"height"`
	ContentType     string    `gorm:"type:varchar(100)" json:"content_type"`
	HasNsfwConcepts JSON      `gorm:"type:json" json:"has_nsfw_concepts"`
	FullResult      JSON      `gorm:"type:json" json:"full_result"`
	Source          string    `gorm:"type:varchar(20);default:'generated';index" json:"source"`
	UserID          string    `gorm:"type:varchar(191);index;not null" json:"user_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
