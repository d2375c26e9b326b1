package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sourcing_backend/internal/calendar"
	"sourcing_backend/internal/events"
	"sourcing_backend/internal/leads"
	leadrepo "sourcing_backend/internal/leads/repository"
	"sourcing_backend/internal/scheduler"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/db"
	"sourcing_backend/platform/httpkit"
	"sourcing_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.NewWithLevel(cfg.Env, cfg.LogLevel)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	if !cfg.IsCalendarEnabled() {
		// An in-memory calendar here would "repair" drift against nothing.
		log.Warn("google calendar not configured; nothing to reconcile")
		<-ctx.Done()
		return
	}
	cal, err := calendar.NewGoogle(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize google calendar", "error", err)
		panic("failed to initialize google calendar: " + err.Error())
	}

	// Reconcile saves never change status, so nothing here subscribes.
	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	repo := leadrepo.New(pool)
	engine := leads.NewEngine(repo, leads.Deps{
		Bus:        eventBus,
		Config:     cfg,
		Calendar:   cal,
		Classes:    httpkit.NewAccessList(cfg),
		Reconciler: scheduler.LogReconciler{Log: log},
		Log:        log,
	})

	sweep := scheduler.NewReconcileSweep(repo, engine, cfg.GetReconcileSweepInterval(), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweep.Run(gctx)
		return nil
	})

	if cfg.IsRedisEnabled() {
		worker, err := scheduler.NewWorker(cfg, engine, log)
		if err != nil {
			log.Error("failed to initialize scheduler worker", "error", err)
			panic("failed to initialize scheduler worker: " + err.Error())
		}
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	} else {
		log.Warn("REDIS_URL not configured; running the drift sweep only")
	}

	_ = g.Wait()
	log.Info("scheduler stopped")
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
