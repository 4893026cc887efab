package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/portfolio-api/internal/config"
	"github.com/noah-isme/portfolio-api/internal/handler"
	"github.com/noah-isme/portfolio-api/internal/middleware"
	"github.com/noah-isme/portfolio-api/internal/observability"
	"github.com/noah-isme/portfolio-api/internal/session"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler   *handler.AssignmentHandler
	ReviewHandler       *handler.ReviewHandler
	DraftHandler        *handler.DraftHandler
	UploadHandler       *handler.UploadHandler
	PortfolioHandler    *handler.PortfolioHandler
	NotificationHandler *handler.NotificationHandler
	SSOHandler          *handler.SSOHandler
	HealthProbes        map[string]handler.HealthProbe
	JWTMiddleware       fiber.Handler
	OptionalJWT         fiber.Handler
}

func passThrough(c *fiber.Ctx) error { return c.Next() }

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = passThrough
	}
	optionalJWT := deps.OptionalJWT
	if optionalJWT == nil {
		optionalJWT = passThrough
	}

	v2 := app.Group("/api/v2")
	v2.Get("/workflow/taxonomy", handler.WorkflowCatalog())

	if deps.SSOHandler != nil {
		sso := v2.Group("/auth/sso", middleware.RateLimit("sso", cfg.RateLimitPerMinute, time.Minute))
		deps.SSOHandler.Register(sso)
	}

	if deps.PortfolioHandler != nil {
		public := v2.Group("/public/portfolio", optionalJWT)
		deps.PortfolioHandler.Register(public)
	}

	// Student wizard
	if deps.AssignmentHandler != nil {
		portfolio := v2.Group("/portfolio", jwtMiddleware)
		deps.AssignmentHandler.Register(portfolio.Group("/assignments"))

		studentsOnly := middleware.WithAuth(passThrough, middleware.AuthOptions{Role: middleware.AuthRoleStudent})
		if deps.DraftHandler != nil {
			deps.DraftHandler.Register(portfolio.Group("/drafts", studentsOnly))
		}
		if deps.UploadHandler != nil {
			uploads := portfolio.Group("/uploads",
				middleware.WithAuth(passThrough, middleware.AuthOptions{RequireUser: true}),
				middleware.RateLimit("upload", cfg.RateLimitPerMinute, time.Minute),
			)
			deps.UploadHandler.Register(uploads)
		}
	}

	// Teacher review queue
	if deps.ReviewHandler != nil {
		review := v2.Group("/review/assignments", jwtMiddleware, middleware.RequireRole(session.RoleTeacher, session.RoleAdmin))
		deps.ReviewHandler.Register(review)
	}

	if deps.NotificationHandler != nil {
		notifications := v2.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.Register(notifications)
	}
}
