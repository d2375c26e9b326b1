package calendar

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCalendarRoundTrip(t *testing.T) {
	ctx := context.Background()
	cal := NewMemory()
	start := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)

	id, err := cal.CreateEvent(ctx, EventInput{Title: "Sofa", Start: start, End: start.Add(time.Hour)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	title := "Leather sofa"
	if err := cal.UpdateEvent(ctx, id, EventPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	ev, ok := cal.Get(id)
	if !ok || ev.Title != title {
		t.Fatalf("expected patched title %q, got %+v", title, ev)
	}

	busy, err := cal.ListEvents(ctx, start.Add(-time.Hour), start.Add(2*time.Hour))
	if err != nil || len(busy) != 1 {
		t.Fatalf("expected 1 busy interval, got %d (%v)", len(busy), err)
	}

	if err := cal.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := cal.DeleteEvent(ctx, id); err != nil {
		t.Fatalf("expected repeated delete to succeed, got %v", err)
	}
	if err := cal.UpdateEvent(ctx, id, EventPatch{Title: &title}); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}
