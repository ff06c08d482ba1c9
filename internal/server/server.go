// Package server assembles the Fiber application from its dependencies.
package server

import (
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/segmentio/ksuid"
	"github.com/tusktask/tusktask/internal/config"
	"github.com/tusktask/tusktask/internal/dateparse"
	"github.com/tusktask/tusktask/internal/handlers"
	"github.com/tusktask/tusktask/internal/middleware"
	"github.com/tusktask/tusktask/internal/routes"
	"github.com/tusktask/tusktask/internal/services"
	"github.com/tusktask/tusktask/internal/storage"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Mailer   services.Mailer
	Bucket   storage.Bucket
	Verifier *services.OAuthVerifier
	// Quiet disables request logging.
	Quiet bool
}

// Services are exposed so background jobs share them with the API.
type Services struct {
	Auth      *services.AuthService
	OTP       *services.OTPService
	Profile   *services.ProfileService
	Avatar    *services.AvatarService
	Project   *services.ProjectService
	Task      *services.TaskService
	Stats     *services.StatsService
	Reminders *services.ReminderService
}

func NewServices(cfg *config.Config, deps Deps) *Services {
	otp := services.NewOTPService(deps.DB, deps.Mailer, cfg.OTPTTL, cfg.OTPCooldown)
	return &Services{
		Auth:      services.NewAuthService(deps.DB, cfg, otp, deps.Verifier),
		OTP:       otp,
		Profile:   services.NewProfileService(deps.DB),
		Avatar:    services.NewAvatarService(deps.DB, deps.Bucket, cfg.AvatarMaxBytes),
		Project:   services.NewProjectService(deps.DB),
		Task:      services.NewTaskService(deps.DB, dateparse.New()),
		Stats:     services.NewStatsService(deps.DB),
		Reminders: services.NewReminderService(deps.DB, deps.Mailer),
	}
}

// New builds the application with the global middleware stack and all
// routes registered.
func New(cfg *config.Config, deps Deps) (*fiber.App, *Services) {
	svc := NewServices(cfg, deps)

	app := fiber.New(fiber.Config{
		AppName:      "tusktask",
		BodyLimit:    int(cfg.AvatarMaxBytes) + 1024*1024,
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return ksuid.New().String() },
	}))
	if !deps.Quiet {
		app.Use(fiberlogger.New(fiberlogger.Config{
			Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${respHeader:X-Request-ID}\n",
		}))
	}
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	routes.Setup(app, cfg, &routes.Handlers{
		Auth:    handlers.NewAuthHandler(svc.Auth, svc.OTP, cfg),
		Health:  handlers.NewHealthHandler(deps.DB),
		Profile: handlers.NewProfileHandler(svc.Profile, svc.Avatar),
		Project: handlers.NewProjectHandler(svc.Project),
		Task:    handlers.NewTaskHandler(svc.Task),
		Stats:   handlers.NewStatsHandler(svc.Stats),
	})

	return app, svc
}
