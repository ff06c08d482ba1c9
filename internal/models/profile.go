package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the public face of a user: one per user, keyed by the user ID.
type Profile struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string    `gorm:"size:30;not null;uniqueIndex" json:"username"`
	DisplayName string    `gorm:"size:80" json:"display_name"`
	AvatarURL   string    `gorm:"type:text" json:"avatar_url"`
	CoverURL    string    `gorm:"type:text" json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
