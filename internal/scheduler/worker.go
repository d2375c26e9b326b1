package scheduler

import (
	"context"
	"fmt"

	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/config"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Syncer re-applies a lead's current state to the calendar.
type Syncer interface {
	Sync(ctx context.Context, leadID uuid.UUID) (lifecycle.Outcome, error)
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	syncer Syncer
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, syncer Syncer, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queueName(cfg): 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		syncer: syncer,
		log:    log,
	}

	mux.HandleFunc(TaskCalendarReconcile, w.handleCalendarReconcile)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
}

func (w *Worker) handleCalendarReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCalendarReconcilePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	return reconcileLead(ctx, w.syncer, w.log, leadID, payload.Reason)
}

// reconcileLead returns an error while the calendar is still out of step so
// the task is retried with backoff.
func reconcileLead(ctx context.Context, syncer Syncer, log *logger.Logger, leadID uuid.UUID, reason string) error {
	out, err := syncer.Sync(ctx, leadID)
	if apperr.Is(err, apperr.KindNotFound) {
		log.Info("reconcile skipped, lead no longer exists", "lead_id", leadID.String())
		return nil
	}
	if err != nil {
		return err
	}
	if !out.CalendarSynced {
		return fmt.Errorf("calendar still out of sync for lead %s", leadID)
	}
	log.Info("calendar reconciled",
		"lead_id", leadID.String(),
		"action", out.CalendarAction.String(),
		"reason", reason,
	)
	return nil
}
