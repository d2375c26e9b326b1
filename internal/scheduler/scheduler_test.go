package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"sourcing_backend/internal/leads/domain"
	"sourcing_backend/internal/leads/lifecycle"
	"sourcing_backend/platform/apperr"
	"sourcing_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeSyncer struct {
	results map[uuid.UUID]error
	synced  map[uuid.UUID]bool
	calls   []uuid.UUID
}

func (f *fakeSyncer) Sync(_ context.Context, id uuid.UUID) (lifecycle.Outcome, error) {
	f.calls = append(f.calls, id)
	if err := f.results[id]; err != nil {
		return lifecycle.Outcome{}, err
	}
	return lifecycle.Outcome{CalendarAction: domain.CalendarCreate, CalendarSynced: f.synced[id]}, nil
}

type fakeLister struct {
	ids []uuid.UUID
	err error
}

func (f fakeLister) ListCalendarDrift(context.Context, int) ([]uuid.UUID, error) {
	return f.ids, f.err
}

func TestReconcileTaskRoundTrip(t *testing.T) {
	id := uuid.New()
	task, err := NewCalendarReconcileTask(CalendarReconcilePayload{LeadID: id.String(), Reason: "calendar create failed"})
	if err != nil {
		t.Fatalf("expected task, got %v", err)
	}
	if task.Type() != TaskCalendarReconcile {
		t.Fatalf("expected type %s, got %s", TaskCalendarReconcile, task.Type())
	}
	payload, err := ParseCalendarReconcilePayload(task)
	if err != nil || payload.LeadID != id.String() {
		t.Fatalf("expected payload for %s, got %+v %v", id, payload, err)
	}
}

func TestReconcileHandlerOutcomes(t *testing.T) {
	ok, unsynced, gone, broken := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	syncer := &fakeSyncer{
		results: map[uuid.UUID]error{
			gone:   apperr.NotFound("lead not found"),
			broken: errors.New("db down"),
		},
		synced: map[uuid.UUID]bool{ok: true},
	}
	w := &Worker{syncer: syncer, log: logger.New("development")}

	run := func(id string) error {
		task, _ := NewCalendarReconcileTask(CalendarReconcilePayload{LeadID: id})
		return w.handleCalendarReconcile(context.Background(), task)
	}

	if err := run(ok.String()); err != nil {
		t.Fatalf("expected synced lead to succeed, got %v", err)
	}
	if err := run(gone.String()); err != nil {
		t.Fatalf("expected deleted lead to be dropped, got %v", err)
	}
	if err := run(unsynced.String()); err == nil {
		t.Fatalf("expected retry while calendar is out of sync")
	}
	if err := run(broken.String()); err == nil {
		t.Fatalf("expected store failure to retry")
	}
	if err := run("not-a-uuid"); !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry for bad payload, got %v", err)
	}
}

func TestSweepRepairsDriftedLeads(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	syncer := &fakeSyncer{synced: map[uuid.UUID]bool{a: true}}
	sweep := NewReconcileSweep(fakeLister{ids: []uuid.UUID{a, b}}, syncer, time.Minute, logger.New("development"))

	result := sweep.runOnce(context.Background())
	if result.Found != 2 || result.Repaired != 1 || result.Failed != 1 {
		t.Fatalf("expected 2 found, 1 repaired, 1 failed, got %+v", result)
	}
}

func TestSweepSurvivesListFailure(t *testing.T) {
	syncer := &fakeSyncer{}
	sweep := NewReconcileSweep(fakeLister{err: errors.New("db down")}, syncer, 0, logger.New("development"))

	if result := sweep.runOnce(context.Background()); result.Found != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
	if sweep.interval != defaultSweepInterval {
		t.Fatalf("expected default interval, got %s", sweep.interval)
	}
}
