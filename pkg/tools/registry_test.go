package tools

import (
	"context"
	"testing"
	"time"

	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
)

type fakeCalendar struct {
	events   []CalendarEvent
	created  []CalendarEvent
	updated  map[string]CalendarEvent
	deleted  []string
	listErr  error
}

func (f *fakeCalendar) ListEventsOnDay(ctx context.Context, day time.Time) ([]CalendarEvent, error) {
	return f.events, f.listErr
}
func (f *fakeCalendar) FindEventsByPhone(ctx context.Context, phone string) ([]CalendarEvent, error) {
	var out []CalendarEvent
	for _, e := range f.events {
		if e.Phone == phone {
			out = append(out, e)
		}
	}
	return out, nil
}
func (f *fakeCalendar) CreateEvent(ctx context.Context, evt CalendarEvent) (string, error) {
	f.created = append(f.created, evt)
	return "evt-123", nil
}
func (f *fakeCalendar) UpdateEvent(ctx context.Context, id string, evt CalendarEvent) error {
	if f.updated == nil {
		f.updated = map[string]CalendarEvent{}
	}
	f.updated[id] = evt
	return nil
}
func (f *fakeCalendar) DeleteEvent(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeLeadSink struct {
	leads []Lead
}

func (f *fakeLeadSink) Append(ctx context.Context, lead Lead) error {
	f.leads = append(f.leads, lead)
	return nil
}

func testDeps(cal CalendarService, leads LeadSink) Dependencies {
	loc, _ := time.LoadLocation("America/Cancun")
	if loc == nil {
		loc = time.UTC
	}
	return Dependencies{Calendar: cal, Leads: leads, Location: loc}
}

func TestProcessAppointmentRequestReturnsSlotList(t *testing.T) {
	cal := &fakeCalendar{}
	finder := newSlotFinder(cal, time.UTC)
	exec := processAppointmentRequest(finder, time.UTC)

	tomorrow := time.Now().Add(48 * time.Hour).Format("2006-01-02")
	result := exec(context.Background(), map[string]any{"date": tomorrow})
	if result.Status() != "SLOT_LIST" {
		t.Fatalf("expected SLOT_LIST, got %s", result.Status())
	}
	if _, ok := result["slots"]; !ok {
		t.Errorf("expected slots field in result")
	}
}

func TestProcessAppointmentRequestMissingDate(t *testing.T) {
	cal := &fakeCalendar{}
	finder := newSlotFinder(cal, time.UTC)
	exec := processAppointmentRequest(finder, time.UTC)

	result := exec(context.Background(), map[string]any{})
	if result.Status() != "NEED_EXACT_DATE" {
		t.Errorf("expected NEED_EXACT_DATE, got %s", result.Status())
	}
}

func TestCreateCalendarEventValidationError(t *testing.T) {
	cal := &fakeCalendar{}
	deps := testDeps(cal, nil)
	finder := newSlotFinder(cal, deps.Location)
	exec := createCalendarEvent(finder, deps)

	result := exec(context.Background(), map[string]any{"date": "2026-08-01"})
	if result.Status() != "validation_error" {
		t.Errorf("expected validation_error, got %s", result.Status())
	}
}

func TestCreateCalendarEventSuccess(t *testing.T) {
	cal := &fakeCalendar{}
	deps := testDeps(cal, nil)
	finder := newSlotFinder(cal, deps.Location)
	exec := createCalendarEvent(finder, deps)

	result := exec(context.Background(), map[string]any{
		"date": "2026-08-01", "time": "09:30", "name": "Jane Doe", "phone": "555-1234",
	})
	if result.Status() != "success" {
		t.Fatalf("expected success, got %s: %v", result.Status(), result["error"])
	}
	if len(cal.created) != 1 {
		t.Errorf("expected one created event, got %d", len(cal.created))
	}
}

func TestSearchCalendarEventByPhoneNotFound(t *testing.T) {
	cal := &fakeCalendar{}
	deps := testDeps(cal, nil)
	exec := searchCalendarEventByPhone(deps)

	result := exec(context.Background(), map[string]any{"phone": "555-0000"})
	if result.Status() != "not_found" {
		t.Errorf("expected not_found, got %s", result.Status())
	}
}

func TestSearchCalendarEventByPhoneFound(t *testing.T) {
	cal := &fakeCalendar{events: []CalendarEvent{{ID: "evt-1", Phone: "555-1234", StartRFC3339: "2026-08-01T09:30:00-05:00"}}}
	deps := testDeps(cal, nil)
	exec := searchCalendarEventByPhone(deps)

	result := exec(context.Background(), map[string]any{"phone": "555-1234"})
	if result.Status() != "found" {
		t.Errorf("expected found, got %s", result.Status())
	}
}

func TestRegistrarLeadRequiresNameAndPhone(t *testing.T) {
	leads := &fakeLeadSink{}
	exec := registrarLead(testDeps(nil, leads))

	result := exec(context.Background(), map[string]any{"name": "Jane"})
	if result.Status() != "error" {
		t.Errorf("expected error for missing phone, got %s", result.Status())
	}

	result = exec(context.Background(), map[string]any{"name": "Jane", "phone": "555-1234", "company": "Acme"})
	if result.Status() != "success" {
		t.Fatalf("expected success, got %s", result.Status())
	}
	if len(leads.leads) != 1 {
		t.Errorf("expected one captured lead, got %d", len(leads.leads))
	}
}

func TestSetModeToolValidatesMode(t *testing.T) {
	exec := setModeTool()

	result := exec(context.Background(), map[string]any{"mode": "create_appt"})
	if result.Status() != "success" || result["mode"] != string(orchestrator.ModeCreateAppt) {
		t.Errorf("expected success with mode create_appt, got %v", result)
	}

	result = exec(context.Background(), map[string]any{"mode": "not-a-mode"})
	if result.Status() != "error" {
		t.Errorf("expected error for unknown mode, got %s", result.Status())
	}
}

func TestEndCallToolAlwaysTerminates(t *testing.T) {
	exec := endCallTool()
	result := exec(context.Background(), map[string]any{"reason": "caller said goodbye"})
	if !result.Terminate() {
		t.Error("expected end_call result to terminate the session")
	}
}

func TestRegisterAllRegistersEveryTool(t *testing.T) {
	registry := orchestrator.NewToolRegistry(4, time.Second)
	RegisterAll(registry, testDeps(&fakeCalendar{}, &fakeLeadSink{}))

	expected := []string{
		"process_appointment_request", "create_calendar_event", "search_calendar_event_by_phone",
		"edit_calendar_event", "delete_calendar_event", "registrar_lead", "set_mode", "end_call",
	}
	names := registry.Names()
	nameSet := map[string]bool{}
	for _, n := range names {
		nameSet[n] = true
	}
	for _, want := range expected {
		if !nameSet[want] {
			t.Errorf("expected %s to be registered", want)
		}
	}
}
