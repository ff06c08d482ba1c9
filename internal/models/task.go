package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is shared by tasks and projects.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOnProcess Status = "on_process"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusOnProcess, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerID        uuid.UUID  `gorm:"type:uuid;not null;index" json:"owner_id"`
	ProjectID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"project_id"`
	ParentTaskID   *uuid.UUID `gorm:"type:uuid;index" json:"parent_task_id"`
	MasterTaskID   *uuid.UUID `gorm:"type:uuid;index" json:"master_task_id"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Description    string     `gorm:"type:text" json:"description"`
	TaskStatus     Status     `gorm:"size:20;not null;default:'pending';index" json:"task_status"`
	TaskPriority   Priority   `gorm:"size:20;not null;default:'medium'" json:"task_priority"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	ReminderAt     *time.Time `gorm:"index" json:"reminder_at"`
	DeadlineAt     *time.Time `json:"deadline_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ReminderSentAt *time.Time `json:"-"`

	Project  Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"-"`
	Subtasks []Task  `gorm:"foreignKey:ParentTaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (t *Task) IsCompleted() bool {
	return t.CompletedAt != nil
}
