package services

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/session"
	"gorm.io/gorm"
)

const maxProjectNameLength = 120

var (
	ErrPrimaryExists    = apperr.Invalid("you already have a primary project")
	ErrPrimaryImmutable = apperr.Invalid("the primary project cannot be deleted or archived")
	ErrProjectTypeFixed = apperr.Invalid("project_type cannot be changed")
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

// List returns the caller's projects, primary first, then newest first.
func (s *ProjectService) List(ctx context.Context, ownerID uuid.UUID, filter dto.ProjectFilter) ([]models.Project, error) {
	if filter.ID != nil {
		project, err := loadProject(s.db.WithContext(ctx), ownerID, *filter.ID)
		if err != nil {
			return nil, err
		}
		return []models.Project{*project}, nil
	}

	q := s.db.WithContext(ctx).Scopes(session.OwnedBy(ownerID))
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, apperr.Invalid("invalid project_type")
		}
		q = q.Where("project_type = ?", filter.Type)
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperr.Invalid("invalid project_status")
		}
		q = q.Where("project_status = ?", filter.Status)
	}
	if query := strings.TrimSpace(filter.Query); query != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(query)+"%")
	}

	var projects []models.Project
	if err := q.
		Order(gorm.Expr("CASE WHEN project_type = ? THEN 0 ELSE 1 END, created_at DESC", models.ProjectTypePrimary)).
		Find(&projects).Error; err != nil {
		return nil, apperr.Database(err)
	}
	return projects, nil
}

func (s *ProjectService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Project, error) {
	return loadProject(s.db.WithContext(ctx), ownerID, id)
}

// Primary returns the caller's primary project.
func (s *ProjectService) Primary(ctx context.Context, ownerID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ctx).Scopes(session.OwnedBy(ownerID)).
		Where("project_type = ?", models.ProjectTypePrimary).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, apperr.Database(err)
	}
	return &project, nil
}

// Create adds a project. A primary project is only accepted while the
// caller has none.
func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, req *dto.CreateProjectRequest) (*models.Project, error) {
	project := models.Project{
		OwnerID:         ownerID,
		ProjectType:     req.ProjectType,
		Name:            strings.TrimSpace(req.Name),
		Description:     req.Description,
		Icon:            req.Icon,
		DeadlineAt:      req.DeadlineAt,
		ProjectPriority: req.ProjectPriority,
		ProjectStatus:   req.ProjectStatus,
	}
	if project.ProjectType == "" {
		project.ProjectType = models.ProjectTypeGeneric
	}
	if project.ProjectPriority == "" {
		project.ProjectPriority = models.PriorityMedium
	}
	if project.ProjectStatus == "" {
		project.ProjectStatus = models.StatusPending
	}
	if err := validateProject(&project); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if project.IsPrimary() {
			var existing int64
			if err := tx.Model(&models.Project{}).
				Scopes(session.OwnedBy(ownerID)).
				Where("project_type = ?", models.ProjectTypePrimary).
				Count(&existing).Error; err != nil {
				return apperr.Database(err)
			}
			if existing > 0 {
				return ErrPrimaryExists
			}
		}
		if err := tx.Omit("Owner").Create(&project).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &project, nil
}

func (s *ProjectService) Update(ctx context.Context, ownerID, id uuid.UUID, req *dto.UpdateProjectRequest) (*models.Project, error) {
	var project *models.Project

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := loadProject(tx, ownerID, id)
		if err != nil {
			return err
		}
		project = p

		if req.ProjectType != nil && *req.ProjectType != project.ProjectType {
			return ErrProjectTypeFixed
		}
		if req.Name != nil {
			project.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			project.Description = *req.Description
		}
		if req.Icon != nil {
			project.Icon = *req.Icon
		}
		if req.DeadlineAt.Set {
			project.DeadlineAt = req.DeadlineAt.Value
		}
		if req.ProjectPriority != nil {
			project.ProjectPriority = *req.ProjectPriority
		}
		if req.ProjectStatus != nil {
			if project.IsPrimary() && *req.ProjectStatus == models.StatusArchived {
				return ErrPrimaryImmutable
			}
			project.ProjectStatus = *req.ProjectStatus
		}

		if err := validateProject(project); err != nil {
			return err
		}
		if err := tx.Omit("Owner").Save(project).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// Delete removes a project and all of its tasks.
func (s *ProjectService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		project, err := loadProject(tx, ownerID, id)
		if err != nil {
			return err
		}
		if project.IsPrimary() {
			return ErrPrimaryImmutable
		}

		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error; err != nil {
			return apperr.Database(err)
		}
		if err := tx.Delete(project).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
}

func validateProject(p *models.Project) error {
	if p.Name == "" {
		return apperr.Invalid("name is required")
	}
	if utf8.RuneCountInString(p.Name) > maxProjectNameLength {
		return apperr.Invalid("name must be at most 120 characters")
	}
	if !p.ProjectType.Valid() {
		return apperr.Invalid("invalid project_type")
	}
	if !p.ProjectPriority.Valid() {
		return apperr.Invalid("invalid project_priority")
	}
	if !p.ProjectStatus.Valid() {
		return apperr.Invalid("invalid project_status")
	}
	return nil
}
