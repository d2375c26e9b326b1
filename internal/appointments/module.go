// Package appointments provides the pickup scheduling module.
package appointments

import (
	"time"

	"sourcing_backend/internal/appointments/handler"
	"sourcing_backend/internal/appointments/service"
	"sourcing_backend/internal/calendar"
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/platform/logger"
)

// Module represents the appointments domain module
type Module struct {
	handler *handler.Handler
	Service *service.Service
}

// NewModule creates a new appointments module with all dependencies wired
func NewModule(cal calendar.Adapter, loc *time.Location, log *logger.Logger) *Module {
	svc := service.New(cal, loc, log)
	return &Module{
		handler: handler.New(svc),
		Service: svc,
	}
}

// Name returns the module name for logging
func (m *Module) Name() string {
	return "appointments"
}

// RegisterRoutes registers the module's routes under /api/v1/pickups
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pickups := ctx.Protected.Group("/pickups")
	m.handler.RegisterRoutes(pickups)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
