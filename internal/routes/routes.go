package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/handlers"
	"github.com/tusktask/tusktask/internal/middleware"
)

type Handlers struct {
	Auth    *handlers.AuthHandler
	Health  *handlers.HealthHandler
	Profile *handlers.ProfileHandler
	Project *handlers.ProjectHandler
	Task    *handlers.TaskHandler
	Stats   *handlers.StatsHandler
}

func Setup(app *fiber.App, cfg *config.Config, h *Handlers) {
	// Uploaded images, read-only
	app.Static(cfg.StoragePublicURL, cfg.StorageDir, fiber.Static{
		Browse:        false,
		CacheDuration: 10 * time.Minute,
		MaxAge:        86400,
	})

	api := app.Group("/api")
	api.Use(middleware.RateLimit(cfg.RateLimit))

	api.Get("/health", h.Health.Check)

	// Auth: public, stricter rate limit
	auth := api.Group("/auth")
	auth.Use(middleware.RateLimit(cfg.AuthRateLimit))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/otp", h.Auth.SendOTP)
	auth.Post("/otp/verify", h.Auth.VerifyOTP)
	auth.Post("/password/reset", h.Auth.ResetPassword)
	auth.Post("/oauth/:provider", h.Auth.OAuth)

	// Protected routes get the JWT middleware individually so it never
	// runs for the public routes above.
	jwt := middleware.JWTProtected(cfg)

	auth.Post("/logout", jwt, h.Auth.Logout)
	auth.Delete("/account", jwt, h.Auth.DeleteAccount)

	users := api.Group("/users", jwt)
	users.Get("/profile", h.Profile.Get)
	users.Patch("/profile", h.Profile.Update)
	users.Get("/username", h.Profile.CheckUsername)
	users.Post("/avatar", h.Profile.UploadAvatar)

	projects := api.Group("/projects", jwt)
	projects.Get("/", h.Project.List)
	projects.Post("/", h.Project.Create)
	projects.Patch("/", h.Project.Update)
	projects.Delete("/", h.Project.Delete)

	tasks := api.Group("/tasks", jwt)
	tasks.Get("/buckets", h.Task.Buckets)
	tasks.Post("/parse-date", h.Task.ParseDate)
	tasks.Get("/", h.Task.List)
	tasks.Post("/", h.Task.Create)
	tasks.Patch("/", h.Task.Update)
	tasks.Delete("/", h.Task.Delete)

	api.Get("/stats", jwt, h.Stats.Get)
}
