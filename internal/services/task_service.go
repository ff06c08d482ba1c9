package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/categorize"
	"github.com/tusktask/tusktask/internal/dateparse"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxTaskNameLength = 255
	defaultTaskLimit  = 100
	maxTaskLimit      = 500
	// maxTaskDepth bounds ancestor walks when checking for cycles.
	maxTaskDepth = 64
)

var (
	ErrTaskCycle        = apperr.Invalid("a task cannot be nested under itself or its subtasks")
	ErrParentProject    = apperr.Invalid("parent task must belong to the same project")
	ErrCompletionHint   = apperr.Invalid("task_status and completed_at disagree")
	ErrDeadlineUnparsed = apperr.Invalid("could not understand deadline_text")
	ErrTaskTooDeep      = apperr.Invalid("task nesting is too deep")
)

// BucketScope selects the tasks a dashboard is computed over: a project's
// top-level tasks, a parent's subtasks, or all of the caller's top-level
// tasks when both are nil.
type BucketScope struct {
	ProjectID    *uuid.UUID
	ParentTaskID *uuid.UUID
}

type TaskService struct {
	db    *gorm.DB
	dates *dateparse.Parser
	now   func() time.Time
}

func NewTaskService(db *gorm.DB, dates *dateparse.Parser) *TaskService {
	return &TaskService{db: db, dates: dates, now: time.Now}
}

// List returns a page of the caller's tasks, newest first. The page
// reports the limit and offset actually applied.
func (s *TaskService) List(ctx context.Context, ownerID uuid.UUID, filter dto.TaskFilter) (*dto.ListResponse[models.Task], error) {
	db := s.db.WithContext(ctx)
	limit, offset := pageBounds(filter.Limit, filter.Offset)

	if filter.ID != nil {
		task, err := loadTask(db, ownerID, *filter.ID)
		if err != nil {
			return nil, err
		}
		return &dto.ListResponse[models.Task]{Items: []models.Task{*task}, Total: 1, Limit: limit}, nil
	}

	q := db.Model(&models.Task{}).Scopes(session.OwnedBy(ownerID))
	if filter.ProjectID != nil {
		q = q.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.ParentTaskID != nil {
		q = q.Where("parent_task_id = ?", *filter.ParentTaskID)
	} else if filter.RootOnly {
		q = q.Where("parent_task_id IS NULL")
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, apperr.Invalid("invalid task_status")
		}
		q = q.Where("task_status = ?", filter.Status)
	}
	if filter.Priority != "" {
		if !filter.Priority.Valid() {
			return nil, apperr.Invalid("invalid task_priority")
		}
		q = q.Where("task_priority = ?", filter.Priority)
	}
	if filter.Completed != nil {
		if *filter.Completed {
			q = q.Where("completed_at IS NOT NULL")
		} else {
			q = q.Where("completed_at IS NULL")
		}
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, apperr.Database(err)
	}

	tasks := []models.Task{}
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&tasks).Error; err != nil {
		return nil, apperr.Database(err)
	}
	return &dto.ListResponse[models.Task]{Items: tasks, Total: total, Limit: limit, Offset: offset}, nil
}

// pageBounds applies the default and maximum page size.
func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	if limit > maxTaskLimit {
		limit = maxTaskLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *TaskService) Get(ctx context.Context, ownerID, id uuid.UUID) (*models.Task, error) {
	return loadTask(s.db.WithContext(ctx), ownerID, id)
}

func (s *TaskService) Create(ctx context.Context, ownerID uuid.UUID, req *dto.CreateTaskRequest) (*models.Task, error) {
	now := s.now()

	task := models.Task{
		OwnerID:      ownerID,
		ProjectID:    req.ProjectID,
		ParentTaskID: req.ParentTaskID,
		MasterTaskID: req.MasterTaskID,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		TaskStatus:   req.TaskStatus,
		TaskPriority: req.TaskPriority,
		ReminderAt:   req.ReminderAt,
		DeadlineAt:   req.DeadlineAt,
	}
	if task.TaskStatus == "" {
		task.TaskStatus = models.StatusPending
	}
	if task.TaskPriority == "" {
		task.TaskPriority = models.PriorityMedium
	}
	if task.TaskStatus == models.StatusCompleted {
		task.CompletedAt = &now
	}

	if task.DeadlineAt == nil && strings.TrimSpace(req.DeadlineText) != "" {
		parsed, err := s.dates.Parse(req.DeadlineText, now)
		if err != nil {
			return nil, ErrDeadlineUnparsed
		}
		task.DeadlineAt = &parsed.Time
	}

	if err := validateTask(&task); err != nil {
		return nil, err
	}
	if req.ProjectID == uuid.Nil {
		return nil, apperr.Invalid("project_id is required")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := loadProject(tx, ownerID, task.ProjectID); err != nil {
			return err
		}
		if task.ParentTaskID != nil {
			parent, err := loadTask(tx, ownerID, *task.ParentTaskID)
			if err != nil {
				return err
			}
			if parent.ProjectID != task.ProjectID {
				return ErrParentProject
			}
		}
		if task.MasterTaskID != nil {
			if _, err := loadTask(tx, ownerID, *task.MasterTaskID); err != nil {
				return err
			}
		}
		if err := tx.Omit(clause.Associations).Create(&task).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update applies a partial update. task_status and completed_at are kept
// in agreement: a task is completed exactly when completed_at is set.
func (s *TaskService) Update(ctx context.Context, ownerID, id uuid.UUID, req *dto.UpdateTaskRequest) (*models.Task, error) {
	now := s.now()
	var task *models.Task

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := loadTask(tx, ownerID, id)
		if err != nil {
			return err
		}
		task = t
		projectChanged := false

		if req.ProjectID != nil && *req.ProjectID != task.ProjectID {
			if _, err := loadProject(tx, ownerID, *req.ProjectID); err != nil {
				return err
			}
			task.ProjectID = *req.ProjectID
			projectChanged = true
		}

		if req.ParentTaskID.Set {
			task.ParentTaskID = req.ParentTaskID.Value
		}
		if task.ParentTaskID != nil && (req.ParentTaskID.Set || projectChanged) {
			if err := checkParent(tx, ownerID, task); err != nil {
				return err
			}
		}

		if req.Name != nil {
			task.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.TaskPriority != nil {
			task.TaskPriority = *req.TaskPriority
		}
		if req.DeadlineAt.Set {
			task.DeadlineAt = req.DeadlineAt.Value
		}
		if req.ReminderAt.Set {
			task.ReminderAt = req.ReminderAt.Value
			task.ReminderSentAt = nil
		}
		if err := applyCompletion(task, req, now); err != nil {
			return err
		}

		if err := validateTask(task); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
			return apperr.Database(err)
		}

		if projectChanged {
			ids, err := descendantIDs(tx, ownerID, task.ID)
			if err != nil {
				return apperr.Database(err)
			}
			if len(ids) > 0 {
				if err := tx.Model(&models.Task{}).
					Where("id IN ?", ids).
					Update("project_id", task.ProjectID).Error; err != nil {
					return apperr.Database(err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// applyCompletion reconciles task_status and completed_at from a patch.
func applyCompletion(task *models.Task, req *dto.UpdateTaskRequest, now time.Time) error {
	status := task.TaskStatus
	completedAt := task.CompletedAt

	if req.TaskStatus != nil {
		status = *req.TaskStatus
	}

	switch {
	case req.CompletedAt.Set:
		completedAt = req.CompletedAt.Value
		if req.TaskStatus == nil {
			if completedAt != nil {
				status = models.StatusCompleted
			} else if status == models.StatusCompleted {
				status = models.StatusPending
			}
		}
	case req.TaskStatus != nil:
		if status == models.StatusCompleted && completedAt == nil {
			completedAt = &now
		} else if status != models.StatusCompleted {
			completedAt = nil
		}
	}

	if (status == models.StatusCompleted) != (completedAt != nil) {
		return ErrCompletionHint
	}
	task.TaskStatus = status
	task.CompletedAt = completedAt
	return nil
}

// checkParent verifies task.ParentTaskID is an owned task in the same
// project that is not task itself or one of its descendants.
func checkParent(tx *gorm.DB, ownerID uuid.UUID, task *models.Task) error {
	if *task.ParentTaskID == task.ID {
		return ErrTaskCycle
	}
	parent, err := loadTask(tx, ownerID, *task.ParentTaskID)
	if err != nil {
		return err
	}
	if parent.ProjectID != task.ProjectID {
		return ErrParentProject
	}

	cur := parent
	for depth := 0; cur.ParentTaskID != nil; depth++ {
		if depth >= maxTaskDepth {
			return ErrTaskTooDeep
		}
		if *cur.ParentTaskID == task.ID {
			return ErrTaskCycle
		}
		next, err := loadTask(tx, ownerID, *cur.ParentTaskID)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

// Delete removes a task together with all of its subtasks.
func (s *TaskService) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		task, err := loadTask(tx, ownerID, id)
		if err != nil {
			return err
		}
		ids, err := descendantIDs(tx, ownerID, task.ID)
		if err != nil {
			return apperr.Database(err)
		}
		ids = append(ids, task.ID)
		if err := tx.Where("id IN ?", ids).Delete(&models.Task{}).Error; err != nil {
			return apperr.Database(err)
		}
		return nil
	})
}

// descendantIDs walks the subtask tree breadth first.
func descendantIDs(tx *gorm.DB, ownerID, rootID uuid.UUID) ([]uuid.UUID, error) {
	var all []uuid.UUID
	frontier := []uuid.UUID{rootID}
	for depth := 0; len(frontier) > 0 && depth <= maxTaskDepth; depth++ {
		var children []uuid.UUID
		if err := tx.Model(&models.Task{}).
			Scopes(session.OwnedBy(ownerID)).
			Where("parent_task_id IN ?", frontier).
			Pluck("id", &children).Error; err != nil {
			return nil, err
		}
		all = append(all, children...)
		frontier = children
	}
	return all, nil
}

// Buckets categorizes the tasks in scope relative to now.
func (s *TaskService) Buckets(ctx context.Context, ownerID uuid.UUID, scope BucketScope, now time.Time) (*categorize.Buckets, error) {
	db := s.db.WithContext(ctx)
	q := db.Scopes(session.OwnedBy(ownerID))

	switch {
	case scope.ParentTaskID != nil:
		if _, err := loadTask(db, ownerID, *scope.ParentTaskID); err != nil {
			return nil, err
		}
		q = q.Where("parent_task_id = ?", *scope.ParentTaskID)
	case scope.ProjectID != nil:
		if _, err := loadProject(db, ownerID, *scope.ProjectID); err != nil {
			return nil, err
		}
		q = q.Where("project_id = ? AND parent_task_id IS NULL", *scope.ProjectID)
	default:
		q = q.Where("parent_task_id IS NULL")
	}

	var tasks []models.Task
	if err := q.Order("deadline_at IS NULL, deadline_at ASC, created_at ASC").Find(&tasks).Error; err != nil {
		return nil, apperr.Database(err)
	}

	b := categorize.Categorize(tasks, now)
	return &b, nil
}

// ParseDate resolves a natural-language date relative to now in loc.
func (s *TaskService) ParseDate(text string, loc *time.Location) (*dateparse.Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Invalid("text is required")
	}
	res, err := s.dates.Parse(text, s.now().In(loc))
	if err != nil {
		if errors.Is(err, dateparse.ErrNoDate) {
			return nil, apperr.Missing("no date found in text")
		}
		return nil, apperr.Invalid("could not parse date")
	}
	return res, nil
}

func validateTask(t *models.Task) error {
	if t.Name == "" {
		return apperr.Invalid("name is required")
	}
	if utf8.RuneCountInString(t.Name) > maxTaskNameLength {
		return apperr.Invalid("name must be at most 255 characters")
	}
	if !t.TaskStatus.Valid() {
		return apperr.Invalid("invalid task_status")
	}
	if !t.TaskPriority.Valid() {
		return apperr.Invalid("invalid task_priority")
	}
	return nil
}
