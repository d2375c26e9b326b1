// Package profiles provides sourcer profiles and payout account onboarding.
package profiles

import (
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/internal/payments"
	"sourcing_backend/internal/profiles/handler"
	"sourcing_backend/internal/profiles/repository"
	"sourcing_backend/internal/profiles/service"
	"sourcing_backend/platform/logger"
	"sourcing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the profiles bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	// Repo is shared with commissions and notification for payee lookups.
	Repo    *repository.Repository
	Service *service.Service
}

func NewModule(pool *pgxpool.Pool, processor payments.Processor, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, processor, log)
	return &Module{
		handler: handler.New(svc, val),
		Repo:    repo,
		Service: svc,
	}
}

func (m *Module) Name() string {
	return "profiles"
}

// RegisterRoutes mounts routes under /api/v1/profile.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/profile"))
}

var _ apphttp.Module = (*Module)(nil)
