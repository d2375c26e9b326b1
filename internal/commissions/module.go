// Package commissions provides the commission summary and payout module.
package commissions

import (
	"sourcing_backend/internal/commissions/handler"
	"sourcing_backend/internal/commissions/service"
	apphttp "sourcing_backend/internal/http"
)

// Module is the commissions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

func NewModule(svc *service.Service) *Module {
	return &Module{handler: handler.New(svc)}
}

func (m *Module) Name() string {
	return "commissions"
}

// RegisterRoutes mounts routes under /api/v1/commissions.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/commissions"), ctx.PayoutRateLimiter.RateLimit())
}

var _ apphttp.Module = (*Module)(nil)
