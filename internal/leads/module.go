// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"sourcing_backend/internal/adapters/storage"
	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/events"
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/handler"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/internal/leads/management"
	"sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/leads/scoring"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/logger"
	"sourcing_backend/platform/validator"

	playground "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the collaborators the leads module is built from.
// Images and Reconciler may be nil.
type Deps struct {
	Pool       *pgxpool.Pool
	Bus        events.Bus
	Validator  *validator.Validator
	Config     config.LeadsConfig
	Calendar   calendar.Adapter
	Slots      management.SlotChecker
	Images     storage.ImageStore
	Advisor    scoring.Advisor
	Classes    lifecycle.ClassResolver
	Reconciler lifecycle.Reconciler
	Log        *logger.Logger
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	// Repo is shared with the commissions module and the scheduler.
	Repo *repository.Repository
	// Engine runs lifecycle saves; the scheduler uses it for reconciliation.
	Engine     *lifecycle.Engine
	Management *management.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(d Deps) (*Module, error) {
	if err := RegisterValidations(d.Validator); err != nil {
		return nil, err
	}

	repo := repository.New(d.Pool)
	engine := NewEngine(repo, d)

	mgmt := management.New(management.Deps{
		Repo:     repo,
		Engine:   engine,
		Slots:    d.Slots,
		Calendar: d.Calendar,
		Images:   d.Images,
		Advisor:  d.Advisor,
		Events:   d.Bus,
		Log:      d.Log,
	})

	return &Module{
		handler:    handler.New(mgmt, d.Validator),
		Repo:       repo,
		Engine:     engine,
		Management: mgmt,
	}, nil
}

// NewEngine builds the lifecycle engine over any lifecycle store. The
// scheduler process uses it without the HTTP surface.
func NewEngine(store repository.LifecycleStore, d Deps) *lifecycle.Engine {
	rates := lifecycle.Rates{
		Normal:     d.Config.GetCommissionRate(),
		Privileged: d.Config.GetPrivilegedCommissionRate(),
	}
	return lifecycle.New(store, d.Calendar, d.Classes, rates, d.Reconciler, d.Bus, d.Log)
}

// RegisterValidations adds the lead-specific validator tags.
func RegisterValidations(val *validator.Validator) error {
	if err := val.RegisterValidation("lead_status", func(fl playground.FieldLevel) bool {
		_, err := domain.ParseStatus(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}
	return val.RegisterValidation("rejection_reason", func(fl playground.FieldLevel) bool {
		_, ok := domain.LookupRejectionReason(fl.Field().String())
		return ok
	})
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
}

// Compile-time check that Module implements http.Module.
var _ apphttp.Module = (*Module)(nil)
