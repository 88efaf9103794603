package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

func SetupRoutes(app *fiber.App, handler *Handler, log *zap.Logger) {
	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH",
	}))

	// Custom logger middleware
	app.Use(logger.New(logger.Config{
		Format:     "${time} ${pid} ${locals:requestid} ${status} - ${method} ${path}\n",
		TimeFormat: time.RFC3339,
	}))

	// API v1 routes
	api := app.Group("/api/v1")

	// Health check
	api.Get("/health", handler.GetHealth)

	// Metrics
	api.Get("/metrics", handler.GetMetrics)

	// Locations
	api.Get("/locations", handler.GetLocations)

	// Calendar routes
	cal := api.Group("/calendar")
	cal.Get("/month", handler.GetMonth)
	cal.Get("/day", handler.GetDay)
	cal.Get("/hours", handler.GetHours)

	// Charts
	api.Get("/charts/hourly", handler.GetHourlyChart)

	// Preferences
	api.Get("/preferences", handler.GetPreferences)
	api.Put("/preferences", handler.PutPreferences)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/magic-link", handler.PostMagicLink)
	auth.Post("/verify", handler.PostVerify)
	auth.Post("/logout", handler.PostLogout)
	auth.Get("/session", handler.GetSession)

	// Modal view routes
	views := api.Group("/view")
	views.Get("/state", handler.GetViewState)
	views.Post("/:modal/open", handler.PostViewOpen)
	views.Post("/:modal/shift", handler.PostViewShift)
	views.Post("/:modal/close", handler.PostViewClose)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Endpoint not found",
			"path":  c.Path(),
		})
	})
}
