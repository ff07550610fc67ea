package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/api/validation"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Users  *handlers.UsersHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	idParam := validation.Params[dto.UserIDParam]()

	users := app.Group("/api/user")
	users.Post("/create-user", validation.Body[dto.CreateUserRequest](), cfg.Users.Create)
	users.Get("/list-user", cfg.Users.List)
	users.Get("/get-user/:id", idParam, cfg.Users.Get)
	users.Put("/update-user/:id", idParam, validation.Body[dto.UpdateUserRequest](), cfg.Users.Update)
	users.Delete("/delete-user/:id", idParam, cfg.Users.Delete)
}

// NewApp builds a fiber app with the error handler, global middlewares and routes installed.
func NewApp(appName string, mw MiddlewareConfig, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      appName,
		ErrorHandler: ErrorHandler(mw.Logger),
	})
	RegisterMiddlewares(app, mw)
	RegisterRoutes(app, routes)
	return app
}
