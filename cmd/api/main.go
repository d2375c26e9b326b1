package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sourcing_backend/internal/adapters/storage"
	"sourcing_backend/internal/appointments"
	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/commissions"
	commissionservice "sourcing_backend/internal/commissions/service"
	"sourcing_backend/internal/email"
	"sourcing_backend/internal/events"
	apphttp "sourcing_backend/internal/http"
	"sourcing_backend/internal/http/router"
	"sourcing_backend/internal/leads"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/internal/leads/scoring"
	"sourcing_backend/internal/notification"
	"sourcing_backend/internal/payments"
	"sourcing_backend/internal/profiles"
	"sourcing_backend/internal/scheduler"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/db"
	"sourcing_backend/platform/httpkit"
	"sourcing_backend/platform/lock"
	"sourcing_backend/platform/logger"
	"sourcing_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	if cfg.GetMigrateOnStart() {
		if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
			return db.RunMigrations(ctx, pool, log)
		}); err != nil {
			log.Error("failed to run database migrations", "error", err)
			panic("failed to run database migrations: " + err.Error())
		}
		log.Info("database migrations complete")
	}

	loc, err := time.LoadLocation(cfg.GetBusinessTimezone())
	if err != nil {
		panic("invalid business timezone: " + err.Error())
	}

	cal := initCalendar(ctx, cfg, log)
	images := initImageStore(ctx, cfg, log)

	advisor, err := scoring.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize lead scoring", "error", err)
		panic("failed to initialize lead scoring: " + err.Error())
	}

	processor := initPayments(cfg, log)

	locker, closeLocker := initLocker(cfg, log)
	if closeLocker != nil {
		defer closeLocker()
	}

	reconciler, closeReconciler := initReconciler(cfg, log)
	if closeReconciler != nil {
		defer closeReconciler()
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)
	access := httpkit.NewAccessList(cfg)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	profilesModule := profiles.NewModule(pool, processor, val, log)

	// Notification module subscribes to domain events and owns the push hub
	notificationModule := notification.New(email.NewSender(cfg), cfg, log)
	notificationModule.SetAdminDirectory(profilesModule.Repo, access.AdminIDs())
	notificationModule.RegisterHandlers(eventBus)

	appointmentsModule := appointments.NewModule(cal, loc, log)

	leadsModule, err := leads.NewModule(leads.Deps{
		Pool:       pool,
		Bus:        eventBus,
		Validator:  val,
		Config:     cfg,
		Calendar:   cal,
		Slots:      appointmentsModule.Service,
		Images:     images,
		Advisor:    advisor,
		Classes:    access,
		Reconciler: reconciler,
		Log:        log,
	})
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	commissionSvc := commissionservice.New(
		leadsModule.Repo,
		profilesModule.Repo,
		processor,
		locker,
		cfg.GetPayoutLockTTL(),
		eventBus,
		log,
	)
	commissionsModule := commissions.NewModule(commissionSvc)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		Access:   access,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			appointmentsModule,
			profilesModule,
			commissionsModule,
			notificationModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}

	// Streams never finish on their own; close them before draining requests.
	notificationModule.Hub().Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	eventBus.Wait()
	log.Info("server stopped")
}

func initCalendar(ctx context.Context, cfg *config.Config, log *logger.Logger) calendar.Adapter {
	if !cfg.IsCalendarEnabled() {
		log.Warn("google calendar not configured; using in-memory calendar")
		return calendar.NewMemory()
	}

	cal, err := calendar.NewGoogle(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize google calendar", "error", err)
		panic("failed to initialize google calendar: " + err.Error())
	}
	log.Info("google calendar initialized", "calendar", cfg.GetGoogleCalendarID())
	return cal
}

func initImageStore(ctx context.Context, cfg *config.Config, log *logger.Logger) storage.ImageStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; lead image uploads disabled")
		return nil
	}

	svc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	if err := withRetry(ctx, log, "ensure lead image bucket", 5, 2*time.Second, func() error {
		return svc.EnsureBucketExists(ctx)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", cfg.GetMinIOBucketLeadImages())
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
	log.Info("storage service initialized", "bucket", cfg.GetMinIOBucketLeadImages())
	return svc
}

func initPayments(cfg *config.Config, log *logger.Logger) payments.Processor {
	if !cfg.IsPaymentsEnabled() {
		log.Warn("STRIPE_SECRET_KEY not configured; payouts disabled")
		return payments.Disabled{}
	}
	log.Info("stripe payouts enabled", "currency", cfg.GetPayoutCurrency())
	return payments.NewStripe(cfg)
}

func initLocker(cfg *config.Config, log *logger.Logger) (lock.Locker, func()) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; payout lock is process-local")
		return lock.NewLocal(), nil
	}

	client, err := lock.NewRedisClient(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		log.Error("failed to initialize redis lock client", "error", err)
		panic("failed to initialize redis lock client: " + err.Error())
	}
	return lock.NewRedis(client, "sourcing:lock:"), func() {
		_ = client.Close()
	}
}

func initReconciler(cfg *config.Config, log *logger.Logger) (lifecycle.Reconciler, func()) {
	if !cfg.IsRedisEnabled() {
		log.Warn("REDIS_URL not configured; calendar drift is repaired by the scheduler sweep only")
		return scheduler.LogReconciler{Log: log}, nil
	}

	client, err := scheduler.NewClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize reconcile client", "error", err)
		return scheduler.LogReconciler{Log: log}, nil
	}
	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
