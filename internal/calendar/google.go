package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sourcing_backend/platform/config"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Google talks to Google Calendar with a service account.
type Google struct {
	events     *gcal.EventsService
	calendarID string
	timezone   string
	loc        *time.Location
}

// NewGoogle builds the adapter from service-account credentials.
func NewGoogle(ctx context.Context, cfg config.CalendarConfig) (*Google, error) {
	loc, err := time.LoadLocation(cfg.GetBusinessTimezone())
	if err != nil {
		return nil, fmt.Errorf("load calendar timezone: %w", err)
	}

	creds := &jwt.Config{
		Email:      cfg.GetGoogleClientEmail(),
		PrivateKey: []byte(cfg.GetGooglePrivateKey()),
		Scopes:     []string{gcal.CalendarScope},
		TokenURL:   google.JWTTokenURL,
	}

	svc, err := gcal.NewService(ctx, option.WithHTTPClient(creds.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}

	return &Google{
		events:     svc.Events,
		calendarID: cfg.GetGoogleCalendarID(),
		timezone:   cfg.GetBusinessTimezone(),
		loc:        loc,
	}, nil
}

func (g *Google) dateTime(t time.Time) *gcal.EventDateTime {
	return &gcal.EventDateTime{
		DateTime: t.In(g.loc).Format(time.RFC3339),
		TimeZone: g.timezone,
	}
}

func (g *Google) CreateEvent(ctx context.Context, in EventInput) (string, error) {
	created, err := g.events.Insert(g.calendarID, &gcal.Event{
		Summary:     in.Title,
		Description: in.Description,
		Start:       g.dateTime(in.Start),
		End:         g.dateTime(in.End),
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *Google) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) error {
	ev := &gcal.Event{}
	if patch.Title != nil {
		ev.Summary = *patch.Title
	}
	if patch.Description != nil {
		ev.Description = *patch.Description
		ev.ForceSendFields = append(ev.ForceSendFields, "Description")
	}
	if patch.Start != nil {
		ev.Start = g.dateTime(*patch.Start)
	}
	if patch.End != nil {
		ev.End = g.dateTime(*patch.End)
	}

	if _, err := g.events.Patch(g.calendarID, eventID, ev).Context(ctx).Do(); err != nil {
		if isGone(err) {
			return ErrEventNotFound
		}
		return fmt.Errorf("patch calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *Google) DeleteEvent(ctx context.Context, eventID string) error {
	err := g.events.Delete(g.calendarID, eventID).Context(ctx).Do()
	if err != nil && !isGone(err) {
		return fmt.Errorf("delete calendar event %s: %w", eventID, err)
	}
	return nil
}

func (g *Google) ListEvents(ctx context.Context, start, end time.Time) ([]BusyInterval, error) {
	busy := make([]BusyInterval, 0)
	call := g.events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err := call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			if item.Status == "cancelled" || item.Transparency == "transparent" {
				continue
			}
			interval, ok := g.toInterval(item)
			if ok {
				busy = append(busy, interval)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return busy, nil
}

// toInterval converts timed and all-day events. All-day events block whole
// days in the business timezone.
func (g *Google) toInterval(item *gcal.Event) (BusyInterval, bool) {
	if item.Start == nil || item.End == nil {
		return BusyInterval{}, false
	}
	if item.Start.DateTime != "" && item.End.DateTime != "" {
		start, err1 := time.Parse(time.RFC3339, item.Start.DateTime)
		end, err2 := time.Parse(time.RFC3339, item.End.DateTime)
		if err1 != nil || err2 != nil {
			return BusyInterval{}, false
		}
		return BusyInterval{Start: start, End: end, EventID: item.Id}, true
	}
	start, err1 := time.ParseInLocation(time.DateOnly, item.Start.Date, g.loc)
	end, err2 := time.ParseInLocation(time.DateOnly, item.End.Date, g.loc)
	if err1 != nil || err2 != nil {
		return BusyInterval{}, false
	}
	return BusyInterval{Start: start, End: end, EventID: item.Id}, true
}

func isGone(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone
	}
	return false
}
