package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/database"
	"github.com/tusktask/tusktask/internal/dto"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db *gorm.DB
}

func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	health := dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        "ok",
	}
	status, code := fiber.StatusOK, dto.CodeOK
	if err := database.Ping(h.db); err != nil {
		health.Status = "degraded"
		health.DB = "unhealthy"
		status, code = fiber.StatusServiceUnavailable, string(apperr.DatabaseError)
	}

	return c.Status(status).JSON(dto.Response{
		Status:  status,
		Code:    code,
		Message: health.Status,
		Result:  health,
	})
}
