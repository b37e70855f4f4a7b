// Package tools provides the concrete ToolExecutor implementations the
// decision engine's tool calls dispatch to: appointment scheduling against
// Google Calendar, lead capture into Google Sheets, call-mode switching,
// and call termination.
package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// CalendarEvent is the subset of a calendar event this package reads and
// writes, independent of the backing API's wire shape.
type CalendarEvent struct {
	ID          string
	Summary     string
	Description string
	StartRFC3339 string
	EndRFC3339   string
	Phone       string
}

// CalendarService is the scheduling backend a calendar tool call talks to.
// Implemented by googleCalendarService; a fake satisfies it in tests.
type CalendarService interface {
	ListEventsOnDay(ctx context.Context, day time.Time) ([]CalendarEvent, error)
	FindEventsByPhone(ctx context.Context, phone string) ([]CalendarEvent, error)
	CreateEvent(ctx context.Context, evt CalendarEvent) (string, error)
	UpdateEvent(ctx context.Context, id string, evt CalendarEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

type googleCalendarService struct {
	svc        *calendarapi.Service
	calendarID string
}

// NewGoogleCalendarService authenticates a service account from the JSON
// credentials blob (the same GOOGLE_CREDENTIALS_JSON convention the source
// system reads from its hosting environment) and scopes it to Calendar.
func NewGoogleCalendarService(ctx context.Context, credentialsJSON, calendarID string) (CalendarService, error) {
	creds, err := google.CredentialsFromJSON(ctx, []byte(credentialsJSON), calendarapi.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}
	svc, err := calendarapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("building calendar service: %w", err)
	}
	return &googleCalendarService{svc: svc, calendarID: calendarID}, nil
}

func (g *googleCalendarService) ListEventsOnDay(ctx context.Context, day time.Time) ([]CalendarEvent, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	end := start.Add(24 * time.Hour)

	resp, err := g.svc.Events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing calendar events: %w", err)
	}
	return toCalendarEvents(resp.Items), nil
}

func (g *googleCalendarService) FindEventsByPhone(ctx context.Context, phone string) ([]CalendarEvent, error) {
	resp, err := g.svc.Events.List(g.calendarID).
		Q(phone).
		TimeMin(time.Now().Add(-24 * time.Hour).Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("searching calendar events: %w", err)
	}
	events := toCalendarEvents(resp.Items)
	matched := events[:0]
	for _, e := range events {
		if strings.Contains(e.Description, phone) || strings.Contains(e.Summary, phone) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

func (g *googleCalendarService) CreateEvent(ctx context.Context, evt CalendarEvent) (string, error) {
	created, err := g.svc.Events.Insert(g.calendarID, &calendarapi.Event{
		Summary:     evt.Summary,
		Description: evt.Description,
		Start:       &calendarapi.EventDateTime{DateTime: evt.StartRFC3339},
		End:         &calendarapi.EventDateTime{DateTime: evt.EndRFC3339},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("creating calendar event: %w", err)
	}
	return created.Id, nil
}

func (g *googleCalendarService) UpdateEvent(ctx context.Context, id string, evt CalendarEvent) error {
	_, err := g.svc.Events.Patch(g.calendarID, id, &calendarapi.Event{
		Summary:     evt.Summary,
		Description: evt.Description,
		Start:       &calendarapi.EventDateTime{DateTime: evt.StartRFC3339},
		End:         &calendarapi.EventDateTime{DateTime: evt.EndRFC3339},
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("updating calendar event: %w", err)
	}
	return nil
}

func (g *googleCalendarService) DeleteEvent(ctx context.Context, id string) error {
	if err := g.svc.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting calendar event: %w", err)
	}
	return nil
}

func toCalendarEvents(items []*calendarapi.Event) []CalendarEvent {
	out := make([]CalendarEvent, 0, len(items))
	for _, it := range items {
		ev := CalendarEvent{ID: it.Id, Summary: it.Summary, Description: it.Description}
		if it.Start != nil {
			ev.StartRFC3339 = it.Start.DateTime
		}
		if it.End != nil {
			ev.EndRFC3339 = it.End.DateTime
		}
		out = append(out, ev)
	}
	return out
}
