package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/lokutor-ai/callgateway/pkg/orchestrator"
)

// Dependencies are the backends the registered tool executors call out to.
type Dependencies struct {
	Calendar CalendarService
	Leads    LeadSink
	Location *time.Location
}

// RegisterAll wires every ToolExecutor this gateway exposes to the LLM
// onto registry, grounded on the source system's tool surface: appointment
// scheduling against a fixed daily slot grid, lookup/edit/cancel by phone,
// lead capture, call-mode switching, and call termination.
func RegisterAll(registry *orchestrator.ToolRegistry, deps Dependencies) {
	finder := newSlotFinder(deps.Calendar, deps.Location)

	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "process_appointment_request",
		Description: "List free appointment slots on a given date, optionally narrowed to a preferred time.",
		Parameters:  []string{"date", "preferred_time"},
	}, processAppointmentRequest(finder, deps.Location))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "create_calendar_event",
		Description: "Book a new appointment for a caller at a specific date and time.",
		Parameters:  []string{"date", "time", "name", "phone"},
	}, createCalendarEvent(finder, deps))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "search_calendar_event_by_phone",
		Description: "Find an existing appointment by the caller's phone number.",
		Parameters:  []string{"phone"},
	}, searchCalendarEventByPhone(deps))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "edit_calendar_event",
		Description: "Move an existing appointment to a new date and time.",
		Parameters:  []string{"event_id", "date", "time"},
	}, editCalendarEvent(finder, deps))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "delete_calendar_event",
		Description: "Cancel an existing appointment.",
		Parameters:  []string{"event_id"},
	}, deleteCalendarEvent(deps))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "registrar_lead",
		Description: "Record a caller's name, company, and phone number as a sales lead.",
		Parameters:  []string{"name", "company", "phone"},
	}, registrarLead(deps))
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "set_mode",
		Description: "Switch the conversation into a focused task mode.",
		Parameters:  []string{"mode"},
	}, setModeTool())
	registry.RegisterWithSchema(orchestrator.ToolSchema{
		Name:        "end_call",
		Description: "End the call after speaking a final reply.",
		Parameters:  []string{"reason"},
	}, endCallTool())
}

func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// processAppointmentRequest looks up free slots for a requested date and
// returns either the list (status SLOT_LIST) or guidance for narrowing the
// request, matching the source's multi-status scheduling negotiation.
func processAppointmentRequest(finder *slotFinder, loc *time.Location) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		dateStr := argString(args, "date")
		if dateStr == "" {
			return orchestrator.ToolResult{"status": "NEED_EXACT_DATE"}
		}
		day, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			return orchestrator.ToolResult{"status": "NEED_EXACT_DATE"}
		}

		free, err := finder.freeSlotsOn(ctx, day)
		if err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		if len(free) == 0 {
			return orchestrator.ToolResult{"status": "NO_SLOT"}
		}

		preferred := argString(args, "preferred_time")
		if preferred != "" {
			for _, f := range free {
				if f == preferred {
					return orchestrator.ToolResult{"status": "SLOT_LIST", "slots": free, "slot": f}
				}
			}
			return orchestrator.ToolResult{"status": "SLOT_FOUND_LATER", "slot": free[0], "slots": free}
		}
		return orchestrator.ToolResult{"status": "SLOT_LIST", "slots": free}
	}
}

func createCalendarEvent(finder *slotFinder, deps Dependencies) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		dateStr := argString(args, "date")
		startTime := argString(args, "time")
		name := argString(args, "name")
		phone := argString(args, "phone")

		if dateStr == "" || startTime == "" || name == "" || phone == "" {
			return orchestrator.ToolResult{"status": "validation_error"}
		}

		end, ok := windowFor(startTime)
		if !ok {
			return orchestrator.ToolResult{"status": "validation_error"}
		}

		start, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+startTime, deps.Location)
		if err != nil {
			return orchestrator.ToolResult{"status": "validation_error"}
		}
		endTime, _ := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+end, deps.Location)

		_, err = deps.Calendar.CreateEvent(ctx, CalendarEvent{
			Summary:      name,
			Description:  fmt.Sprintf("phone: %s", phone),
			StartRFC3339: start.Format(time.RFC3339),
			EndRFC3339:   endTime.Format(time.RFC3339),
			Phone:        phone,
		})
		if err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		return orchestrator.ToolResult{"status": "success", "slot": dateStr + " " + startTime}
	}
}

func searchCalendarEventByPhone(deps Dependencies) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		phone := argString(args, "phone")
		if phone == "" {
			return orchestrator.ToolResult{"status": "not_found"}
		}
		events, err := deps.Calendar.FindEventsByPhone(ctx, phone)
		if err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		switch len(events) {
		case 0:
			return orchestrator.ToolResult{"status": "not_found"}
		case 1:
			return orchestrator.ToolResult{"status": "found", "slot": events[0].StartRFC3339, "event_id": events[0].ID}
		default:
			return orchestrator.ToolResult{"status": "multiple"}
		}
	}
}

func editCalendarEvent(finder *slotFinder, deps Dependencies) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		eventID := argString(args, "event_id")
		dateStr := argString(args, "date")
		startTime := argString(args, "time")
		if eventID == "" || dateStr == "" || startTime == "" {
			return orchestrator.ToolResult{"status": "error", "error": "missing event_id, date, or time"}
		}
		end, ok := windowFor(startTime)
		if !ok {
			return orchestrator.ToolResult{"status": "error", "error": "not a bookable time slot"}
		}
		start, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+startTime, deps.Location)
		if err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		endTime, _ := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+end, deps.Location)

		err = deps.Calendar.UpdateEvent(ctx, eventID, CalendarEvent{
			StartRFC3339: start.Format(time.RFC3339),
			EndRFC3339:   endTime.Format(time.RFC3339),
		})
		if err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		return orchestrator.ToolResult{"status": "success", "slot": dateStr + " " + startTime}
	}
}

func deleteCalendarEvent(deps Dependencies) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		eventID := argString(args, "event_id")
		if eventID == "" {
			return orchestrator.ToolResult{"status": "error", "error": "missing event_id"}
		}
		if err := deps.Calendar.DeleteEvent(ctx, eventID); err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		return orchestrator.ToolResult{"status": "success"}
	}
}

func registrarLead(deps Dependencies) orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		lead := Lead{
			Name:    argString(args, "name"),
			Company: argString(args, "company"),
			Phone:   argString(args, "phone"),
		}
		if lead.Name == "" || lead.Phone == "" {
			return orchestrator.ToolResult{"status": "error", "error": "missing name or phone"}
		}
		if deps.Leads == nil {
			return orchestrator.ToolResult{"status": "error", "error": "lead capture not configured"}
		}
		if err := deps.Leads.Append(ctx, lead); err != nil {
			return orchestrator.ToolResult{"status": "error", "error": err.Error()}
		}
		return orchestrator.ToolResult{"status": "success", "name": lead.Name, "company": lead.Company}
	}
}

// setModeTool doesn't touch session state directly — ToolExecutor has no
// session handle — it just validates and echoes the requested mode back;
// Controller.runDecisionEngine applies it to the session on success.
func setModeTool() orchestrator.ToolExecutor {
	valid := map[string]orchestrator.Mode{
		"none":          orchestrator.ModeNone,
		"capture_lead":  orchestrator.ModeCaptureLead,
		"create_appt":   orchestrator.ModeCreateAppt,
		"edit_appt":     orchestrator.ModeEditAppt,
		"delete_appt":   orchestrator.ModeDeleteAppt,
	}
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		mode, ok := valid[argString(args, "mode")]
		if !ok {
			return orchestrator.ToolResult{"status": "error", "error": "unknown mode"}
		}
		return orchestrator.ToolResult{"status": "success", "mode": string(mode)}
	}
}

func endCallTool() orchestrator.ToolExecutor {
	return func(ctx context.Context, args map[string]any) orchestrator.ToolResult {
		return orchestrator.ToolResult{"status": "success", "__terminate__": true, "reason": argString(args, "reason")}
	}
}
