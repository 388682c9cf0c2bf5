package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-rewards/internal/api/http/handlers"
	"github.com/spec-kit/ticket-rewards/internal/auth"
	"github.com/spec-kit/ticket-rewards/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	TicketRequests *handlers.TicketRequestsHandler
	Points         *handlers.PointsHandler
	Projects       *handlers.ProjectsHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireActor())
	approvers := auth.RequireRole(domain.RoleAdmin, domain.RoleManager)

	tickets := api.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", approvers, cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/status", cfg.Tickets.ChangeStatus)
	tickets.Get("/:id/transitions", cfg.Tickets.Transitions)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Post("/:id/assign", approvers, cfg.Tickets.Assign)
	tickets.Post("/:id/self-assign", cfg.Tickets.SelfAssign)

	requests := api.Group("/ticket-requests")
	requests.Post("", auth.RequireRole(domain.RoleClient), cfg.TicketRequests.Submit)
	requests.Get("", cfg.TicketRequests.List)
	requests.Get("/stats", approvers, cfg.TicketRequests.Stats)
	requests.Get("/:id", cfg.TicketRequests.Get)
	requests.Post("/:id/approve", approvers, cfg.TicketRequests.Approve)
	requests.Post("/:id/reject", approvers, cfg.TicketRequests.Reject)

	pts := api.Group("/points")
	pts.Get("/me", cfg.Points.Summary)
	pts.Get("/me/history", cfg.Points.History)
	pts.Get("/users/:id", cfg.Points.Summary)
	pts.Get("/users/:id/history", cfg.Points.History)
	pts.Get("/history", approvers, cfg.Points.TeamHistory)
	pts.Get("/leaderboard", cfg.Points.Leaderboard)

	api.Get("/projects", cfg.Projects.List)
	api.Get("/projects/:id", cfg.Projects.Get)

	api.Get("/notifications", cfg.Notifications.List)
	api.Post("/notifications/read-all", cfg.Notifications.MarkAllRead)
	api.Post("/notifications/:id/read", cfg.Notifications.MarkRead)
}
