package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispatch-service/internal/api/http/handlers"
	"github.com/spec-kit/dispatch-service/internal/auth"
	"github.com/spec-kit/dispatch-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Orders         *handlers.OrdersHandler
	Dispatch       *handlers.DispatchHandler
	Technicians    *handlers.TechniciansHandler
	Imports        *handlers.ImportsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/login", cfg.Auth.Login)

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle)

	orders := api.Group("/orders")
	orders.Post("", cfg.Orders.CreateOrder)
	orders.Get("", cfg.Orders.ListOrders)
	orders.Get("/:id", cfg.Orders.GetOrder)
	orders.Patch("/:id", cfg.Orders.UpdateOrder)
	orders.Patch("/:id/status", cfg.Orders.TransitionStatus)
	orders.Get("/:id/activities", cfg.Orders.ListActivities)
	orders.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Orders.DeleteOrder)

	orders.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin, domain.RoleOperator), cfg.Dispatch.Assign)
	orders.Post("/:id/unassign", auth.RequireRole(domain.RoleAdmin, domain.RoleOperator), cfg.Dispatch.Unassign)
	api.Get("/dispatch/queue", cfg.Dispatch.Queue)

	technicians := api.Group("/technicians")
	technicians.Post("", auth.RequireRole(domain.RoleAdmin, domain.RoleOperator), cfg.Technicians.CreateTechnician)
	technicians.Get("", cfg.Technicians.ListTechnicians)
	technicians.Get("/:id", cfg.Technicians.GetTechnician)
	technicians.Patch("/:id", auth.RequireRole(domain.RoleAdmin, domain.RoleOperator), cfg.Technicians.UpdateTechnician)
	technicians.Patch("/:id/status", cfg.Technicians.SetStatus)
	technicians.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Technicians.DeleteTechnician)

	imports := api.Group("/imports", auth.RequireRole(domain.RoleAdmin, domain.RoleOperator))
	imports.Post("", cfg.Imports.CreateImport)
	imports.Get("/:id", cfg.Imports.GetImport)
}
