package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/models"
)

type CreateProjectRequest struct {
	ProjectType     models.ProjectType `json:"project_type"`
	Name            string             `json:"name"`
	Description     string             `json:"description"`
	Icon            string             `json:"icon"`
	DeadlineAt      *time.Time         `json:"deadline_at"`
	ProjectPriority models.Priority    `json:"project_priority"`
	ProjectStatus   models.Status      `json:"project_status"`
}

type UpdateProjectRequest struct {
	ProjectType     *models.ProjectType `json:"project_type"`
	Name            *string             `json:"name"`
	Description     *string             `json:"description"`
	Icon            *string             `json:"icon"`
	DeadlineAt      OptionalTime        `json:"deadline_at"`
	ProjectPriority *models.Priority    `json:"project_priority"`
	ProjectStatus   *models.Status      `json:"project_status"`
}

type ProjectFilter struct {
	ID     *uuid.UUID
	Type   models.ProjectType
	Status models.Status
	Query  string
}
