package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration. A nil Identity or
// Tickets handler leaves that service's routes unmounted.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Identity       *handlers.IdentityHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	if cfg.Identity != nil {
		registerIdentityRoutes(app, cfg)
	}
	if cfg.Tickets != nil {
		registerTicketRoutes(app, cfg)
	}
}

func registerIdentityRoutes(app *fiber.App, cfg RouteConfig) {
	app.Post("/register", cfg.Identity.Register)
	if cfg.LoginLimiter != nil {
		app.Post("/login", cfg.LoginLimiter, cfg.Identity.Login)
	} else {
		app.Post("/login", cfg.Identity.Login)
	}
	app.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Identity.Logout)
	app.Get("/validate", cfg.AuthMiddleware.Handle, cfg.Identity.Validate)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	users.Get("", cfg.Users.List)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)
}

func registerTicketRoutes(app *fiber.App, cfg RouteConfig) {
	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Put("/:id/status", cfg.Tickets.UpdateStatus)
	tickets.Put("/:id/assign", cfg.Tickets.Assign)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
}
