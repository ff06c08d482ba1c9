package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/dto"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/services"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	id, err := queryUUID(c, "id")
	if err != nil {
		return fail(c, err)
	}
	filter := dto.ProjectFilter{
		ID:     id,
		Type:   models.ProjectType(c.Query("type")),
		Status: models.Status(c.Query("status")),
		Query:  c.Query("q"),
	}

	projects, err := h.projectService.List(c.UserContext(), userID, filter)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "projects", projects)
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	project, err := h.projectService.Create(c.UserContext(), userID, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "project created", project)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := requiredID(c)
	if err != nil {
		return fail(c, err)
	}

	var req dto.UpdateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, errInvalidBody)
	}

	project, err := h.projectService.Update(c.UserContext(), userID, id, &req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "project updated", project)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}
	id, err := requiredID(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.projectService.Delete(c.UserContext(), userID, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "project deleted", nil)
}
