package client

import (
	"fmt"
	"time"
)

// Task mirrors the API's task representation.
type Task struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"owner_id"`
	ProjectID    string     `json:"project_id"`
	ParentTaskID *string    `json:"parent_task_id"`
	MasterTaskID *string    `json:"master_task_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	TaskStatus   string     `json:"task_status"`
	TaskPriority string     `json:"task_priority"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ReminderAt   *time.Time `json:"reminder_at"`
	DeadlineAt   *time.Time `json:"deadline_at"`
	CompletedAt  *time.Time `json:"completed_at"`
}

func (t *Task) CacheID() string { return t.ID }

func (t *Task) Completed() bool { return t.CompletedAt != nil }

type Project struct {
	ID              string     `json:"id"`
	OwnerID         string     `json:"owner_id"`
	ProjectType     string     `json:"project_type"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Icon            string     `json:"icon"`
	DeadlineAt      *time.Time `json:"deadline_at"`
	ProjectPriority string     `json:"project_priority"`
	ProjectStatus   string     `json:"project_status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func (p *Project) CacheID() string { return p.ID }

type Profile struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	CoverURL    string    `json:"cover_url"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p *Profile) CacheID() string { return p.ID }

// TaskPatch holds the task fields to change; nil fields are left alone.
type TaskPatch struct {
	Name         *string    `json:"name,omitempty"`
	Description  *string    `json:"description,omitempty"`
	TaskStatus   *string    `json:"task_status,omitempty"`
	TaskPriority *string    `json:"task_priority,omitempty"`
	DeadlineAt   *time.Time `json:"deadline_at,omitempty"`
	ReminderAt   *time.Time `json:"reminder_at,omitempty"`
}

func (p TaskPatch) apply(t *Task) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.TaskPriority != nil {
		t.TaskPriority = *p.TaskPriority
	}
	if p.DeadlineAt != nil {
		t.DeadlineAt = p.DeadlineAt
	}
	if p.ReminderAt != nil {
		t.ReminderAt = p.ReminderAt
	}
	if p.TaskStatus != nil {
		t.TaskStatus = *p.TaskStatus
		switch {
		case t.TaskStatus == StatusCompleted && t.CompletedAt == nil:
			now := time.Now()
			t.CompletedAt = &now
		case t.TaskStatus != StatusCompleted:
			t.CompletedAt = nil
		}
	}
}

type ProjectPatch struct {
	Name            *string    `json:"name,omitempty"`
	Description     *string    `json:"description,omitempty"`
	Icon            *string    `json:"icon,omitempty"`
	DeadlineAt      *time.Time `json:"deadline_at,omitempty"`
	ProjectPriority *string    `json:"project_priority,omitempty"`
	ProjectStatus   *string    `json:"project_status,omitempty"`
}

func (p ProjectPatch) apply(pr *Project) {
	if p.Name != nil {
		pr.Name = *p.Name
	}
	if p.Description != nil {
		pr.Description = *p.Description
	}
	if p.Icon != nil {
		pr.Icon = *p.Icon
	}
	if p.DeadlineAt != nil {
		pr.DeadlineAt = p.DeadlineAt
	}
	if p.ProjectPriority != nil {
		pr.ProjectPriority = *p.ProjectPriority
	}
	if p.ProjectStatus != nil {
		pr.ProjectStatus = *p.ProjectStatus
	}
}

type ProfilePatch struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
}

func (p ProfilePatch) apply(pr *Profile) {
	if p.Username != nil {
		pr.Username = *p.Username
	}
	if p.DisplayName != nil {
		pr.DisplayName = *p.DisplayName
	}
}

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// APIError is a non-2xx response decoded from the envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Retryable reports whether repeating the request could succeed.
func (e *APIError) Retryable() bool {
	return e.Status < 400 || e.Status >= 500
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

type listResult[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}
