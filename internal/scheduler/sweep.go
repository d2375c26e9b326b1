package scheduler

import (
	"context"
	"time"

	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultSweepInterval = 10 * time.Minute
	sweepBatchSize       = 100
)

// DriftLister finds leads whose calendar link disagrees with their status.
type DriftLister interface {
	ListCalendarDrift(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// ReconcileSweep periodically re-syncs every drifted lead. It catches what
// the task queue missed: failed enqueues, exhausted retries, crashes.
type ReconcileSweep struct {
	lister   DriftLister
	syncer   Syncer
	interval time.Duration
	log      *logger.Logger
}

func NewReconcileSweep(lister DriftLister, syncer Syncer, interval time.Duration, log *logger.Logger) *ReconcileSweep {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &ReconcileSweep{lister: lister, syncer: syncer, interval: interval, log: log}
}

func (s *ReconcileSweep) Run(ctx context.Context) {
	if s == nil {
		return
	}

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// SweepResult counts one pass.
type SweepResult struct {
	Found    int
	Repaired int
	Failed   int
}

func (s *ReconcileSweep) runOnce(ctx context.Context) SweepResult {
	var result SweepResult

	ids, err := s.lister.ListCalendarDrift(ctx, sweepBatchSize)
	if err != nil {
		s.log.Warn("calendar drift scan failed", "error", err)
		return result
	}
	result.Found = len(ids)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := reconcileLead(ctx, s.syncer, s.log, id, "sweep"); err != nil {
			result.Failed++
			s.log.Warn("calendar reconcile failed", "lead_id", id.String(), "error", err)
			continue
		}
		result.Repaired++
	}

	if result.Found > 0 {
		s.log.Info("calendar sweep finished",
			"found", result.Found,
			"repaired", result.Repaired,
			"failed", result.Failed,
		)
	}
	return result
}
