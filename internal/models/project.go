package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProjectType string

const (
	ProjectTypeGeneric ProjectType = "generic"
	ProjectTypePrimary ProjectType = "primary"
)

func (t ProjectType) Valid() bool {
	return t == ProjectTypeGeneric || t == ProjectTypePrimary
}

type Project struct {
	ID              uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID         uuid.UUID   `gorm:"type:uuid;not null;index" json:"owner_id"`
	ProjectType     ProjectType `gorm:"size:20;not null;default:'generic'" json:"project_type"`
	Name            string      `gorm:"size:120;not null" json:"name"`
	Description     string      `gorm:"type:text" json:"description"`
	Icon            string      `gorm:"size:64" json:"icon"`
	DeadlineAt      *time.Time  `json:"deadline_at"`
	ProjectPriority Priority    `gorm:"size:20;not null;default:'medium'" json:"project_priority"`
	ProjectStatus   Status      `gorm:"size:20;not null;default:'pending'" json:"project_status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Owner           Profile     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (p *Project) IsPrimary() bool {
	return p.ProjectType == ProjectTypePrimary
}
