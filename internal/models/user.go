package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	AuthProviderEmail  = "email"
	AuthProviderOTP    = "otp"
	AuthProviderApple  = "apple"
	AuthProviderGoogle = "google"
)

// User is the authentication identity. Its profile shares the same ID.
type User struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email           string    `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password        string    `json:"-"`
	AuthProvider    string    `gorm:"size:20;default:'email'" json:"auth_provider"`
	ProviderSubject *string   `gorm:"size:255;index" json:"-"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
