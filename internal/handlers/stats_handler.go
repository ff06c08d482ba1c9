package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/services"
)

type StatsHandler struct {
	statsService *services.StatsService
	now          func() time.Time
}

func NewStatsHandler(statsService *services.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService, now: time.Now}
}

func (h *StatsHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return fail(c, err)
	}

	projectID, err := queryUUID(c, "project_id")
	if err != nil {
		return fail(c, err)
	}
	days, err := queryInt(c, "days")
	if err != nil {
		return fail(c, err)
	}
	loc, err := location(c.Query("tz"))
	if err != nil {
		return fail(c, err)
	}

	stats, err := h.statsService.Summary(c.UserContext(), userID, projectID, days, h.now().In(loc))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "stats", stats)
}
