package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/models"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound = apperr.Missing("project not found")
	ErrTaskNotFound    = apperr.Missing("task not found")
	ErrNotOwner        = apperr.Forbidden("you do not own this resource")
)

// loadProject fetches a project and checks that ownerID owns it.
func loadProject(tx *gorm.DB, ownerID, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	if err := tx.First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, apperr.Database(err)
	}
	if project.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return &project, nil
}

// loadTask fetches a task and checks that ownerID owns it.
func loadTask(tx *gorm.DB, ownerID, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	if err := tx.First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, apperr.Database(err)
	}
	if task.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return &task, nil
}
