package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	now         func() time.Time
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService, now: time.Now}
}

func (h *TaskHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	filter, err := taskFilter(c)
	if err != nil {
		return fail(c, err)
	}

	page, err := h.taskService.List(c.UserContext(), userID, filter)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "tasks", page)
}

// taskFilter reads list filters; parent_task_id=none selects root tasks.
func taskFilter(c *fiber.Ctx) (dto.TaskFilter, error) {
	var filter dto.TaskFilter
	var err error

	if filter.ID, err = queryUUID(c, "id"); err != nil {
		return filter, err
	}
	if filter.ProjectID, err = queryUUID(c, "project_id"); err != nil {
		return filter, err
	}
	if c.Query("parent_task_id") == "none" {
		filter.RootOnly = true
	} else if filter.ParentTaskID, err = queryUUID(c, "parent_task_id"); err != nil {
		return filter, err
	}
	if filter.Completed, err = queryBool(c, "completed"); err != nil {
		return filter, err
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		return filter, err
	}
	filter.Status = models.Status(c.Query("status"))
	filter.Priority = models.Priority(c.Query("priority"))
	return filter, nil
}

func (h *TaskHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	task, err := h.taskService.Create(c.UserContext(), userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "task created", task)
}

func (h *TaskHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := requiredID(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.UpdateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	task, err := h.taskService.Update(c.UserContext(), userID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "task updated", task)
}

func (h *TaskHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := requiredID(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.taskService.Delete(c.UserContext(), userID, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "task deleted", nil)
}

// Buckets categorizes tasks with calendar days taken in ?tz.
func (h *TaskHandler) Buckets(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	var scope services.BucketScope
	if scope.ProjectID, err = queryUUID(c, "project_id"); err != nil {
		return fail(c, err)
	}
	if scope.ParentTaskID, err = queryUUID(c, "parent_task_id"); err != nil {
		return fail(c, err)
	}
	loc, err := location(c.Query("tz"))
	if err != nil {
		return fail(c, err)
	}

	buckets, err := h.taskService.Buckets(c.UserContext(), userID, scope, h.now().In(loc))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "buckets", buckets)
}

func (h *TaskHandler) ParseDate(c *fiber.Ctx) error {
	if _, err := currentUser(c); err != nil {
		return fail(c, err)
	}

	var req dto.ParseDateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}
	loc, err := location(req.Timezone)
	if err != nil {
		return fail(c, err)
	}

	res, err := h.taskService.ParseDate(req.Text, loc)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "date parsed", dto.ParseDateResponse{
		Time:       res.Time,
		Text:       res.Text,
		Normalized: res.Normalized,
	})
}
