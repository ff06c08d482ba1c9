package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/models"
)

type CreateTaskRequest struct {
	ProjectID    uuid.UUID       `json:"project_id"`
	ParentTaskID *uuid.UUID      `json:"parent_task_id"`
	MasterTaskID *uuid.UUID      `json:"master_task_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	TaskStatus   models.Status   `json:"task_status"`
	TaskPriority models.Priority `json:"task_priority"`
	ReminderAt   *time.Time      `json:"reminder_at"`
	DeadlineAt   *time.Time      `json:"deadline_at"`
	// DeadlineText is parsed as natural language when DeadlineAt is empty.
	DeadlineText string `json:"deadline_text"`
}

type UpdateTaskRequest struct {
	ProjectID    *uuid.UUID       `json:"project_id"`
	ParentTaskID OptionalUUID     `json:"parent_task_id"`
	Name         *string          `json:"name"`
	Description  *string          `json:"description"`
	TaskStatus   *models.Status   `json:"task_status"`
	TaskPriority *models.Priority `json:"task_priority"`
	ReminderAt   OptionalTime     `json:"reminder_at"`
	DeadlineAt   OptionalTime     `json:"deadline_at"`
	CompletedAt  OptionalTime     `json:"completed_at"`
}

type TaskFilter struct {
	ID           *uuid.UUID
	ProjectID    *uuid.UUID
	ParentTaskID *uuid.UUID
	RootOnly     bool
	Status       models.Status
	Priority     models.Priority
	Completed    *bool
	Limit        int
	Offset       int
}

type ParseDateRequest struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone"`
}

type ParseDateResponse struct {
	Time       time.Time `json:"time"`
	Text       string    `json:"text"`
	Normalized string    `json:"normalized"`
}
