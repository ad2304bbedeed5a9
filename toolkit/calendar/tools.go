package calendar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/tourmesh/internal/util"
	"github.com/hupe1980/tourmesh/tool"
)

// Tool names.
const (
	CreateCalendarToolName = "Create Calendar"
	ListCalendarsToolName  = "List Calendars"
	ListEventsToolName     = "List Calendar Events"
	InsertEventToolName    = "Insert Calendar Event"
)

// Default result limits.
const (
	DefaultCalendarLimit = 200
	DefaultEventLimit    = 20
)

// eventInput is the object the model writes for "Insert Calendar Event".
type eventInput struct {
	CalendarID  string     `json:"calendar_id" description:"id of the target calendar, 'primary' by default"`
	Summary     string     `json:"summary" description:"event title"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       EventTime  `json:"start" anyof:"dateTime,date"`
	End         EventTime  `json:"end" anyof:"dateTime,date"`
	Attendees   []Attendee `json:"attendees,omitempty"`
}

var eventSchema = util.CreateSchema(eventInput{})

// Toolkit exposes a Backend as agent tools.
type Toolkit struct {
	backend     Backend
	defaultZone string
	toolOpts    []func(o *tool.FunctionToolOptions)
}

// NewToolkit creates the calendar tools over backend. An empty defaultZone
// falls back to DefaultTimeZone. optFns apply to every tool.
func NewToolkit(backend Backend, defaultZone string, optFns ...func(o *tool.FunctionToolOptions)) *Toolkit {
	if defaultZone == "" {
		defaultZone = DefaultTimeZone
	}

	return &Toolkit{backend: backend, defaultZone: defaultZone, toolOpts: optFns}
}

// Tools returns the four calendar tools.
func (k *Toolkit) Tools() []tool.Tool {
	return []tool.Tool{
		tool.NewFunctionTool(CreateCalendarToolName, `Creates a new calendar.
Input: the title of the calendar, e.g. My Travel Calendar.`, k.createCalendar, k.toolOpts...),
		tool.NewFunctionTool(ListCalendarsToolName, fmt.Sprintf(`Lists the available calendars with their id, name and description.
Input: the maximum number of calendars to list, or nothing for the default of %d.`, DefaultCalendarLimit), k.listCalendars, k.toolOpts...),
		tool.NewFunctionTool(ListEventsToolName, fmt.Sprintf(`Lists the events of one calendar.
Input: the calendar id, optionally followed by a comma and the maximum number of events (default %d), e.g. primary, 20.
List the calendars first to find the id of a named calendar.`, DefaultEventLimit), k.listEvents, k.toolOpts...),
		tool.NewFunctionTool(InsertEventToolName, fmt.Sprintf(`Adds one event to a calendar. Call it once per event.
Input: a single JSON object with this structure:
{"calendar_id": "primary", "summary": "Dinner at a regional restaurant", "location": "Ponta Negra", "description": "",
 "start": {"dateTime": "2024-01-01T19:00:00", "timeZone": "%[1]s"}, "end": {"dateTime": "2024-01-01T22:00:00", "timeZone": "%[1]s"}, "attendees": []}
For all-day events use {"date": "YYYY-MM-DD"} for start and end. Without a timeZone %[1]s is used.
If the user names a calendar, list the calendars first to get its calendar_id.
Always give the user the link of the created event together with its details.`, k.defaultZone), k.insertEvent, k.toolOpts...),
	}
}

func (k *Toolkit) createCalendar(ctx context.Context, input string) (string, error) {
	title := strings.NewReplacer(`"`, "", "'", "").Replace(strings.TrimSpace(input))

	c, err := k.backend.CreateCalendar(ctx, title)
	if err != nil {
		return "", err
	}

	return toJSON(c)
}

func (k *Toolkit) listCalendars(ctx context.Context, input string) (string, error) {
	limit, err := parseLimit(input, DefaultCalendarLimit)
	if err != nil {
		return "", tool.NewToolError(ListCalendarsToolName, err.Error(), tool.CodeValidation)
	}

	calendars, err := k.backend.ListCalendars(ctx, limit)
	if err != nil {
		return "", err
	}

	if calendars == nil {
		calendars = []Calendar{}
	}

	return toJSON(calendars)
}

func (k *Toolkit) listEvents(ctx context.Context, input string) (string, error) {
	id, rawLimit, _ := strings.Cut(input, ",")

	id = strings.Trim(strings.TrimSpace(id), "\"'`")
	if id == "" {
		return "", tool.NewToolError(ListEventsToolName, "calendar id is required", tool.CodeValidation)
	}

	limit, err := parseLimit(rawLimit, DefaultEventLimit)
	if err != nil {
		return "", tool.NewToolError(ListEventsToolName, err.Error(), tool.CodeValidation)
	}

	events, err := k.backend.ListEvents(ctx, id, limit)
	if err != nil {
		return "", err
	}

	if len(events) == 0 {
		return "No events found.", nil
	}

	return toJSON(events)
}

func (k *Toolkit) insertEvent(ctx context.Context, input string) (string, error) {
	obj, err := tool.DecodeObject(input, eventSchema)
	if err != nil {
		if errors.Is(err, tool.ErrNotAnObject) {
			return "", tool.NewToolError(InsertEventToolName, "input must be a single JSON object describing one event", tool.CodeValidation)
		}

		return "", tool.NewToolError(InsertEventToolName, err.Error(), tool.CodeValidation)
	}

	// Re-encode the validated map so field types bind through struct tags.
	raw, err := json.Marshal(obj)
	if err != nil {
		return "", err
	}

	var in eventInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return "", tool.NewToolError(InsertEventToolName, fmt.Sprintf("invalid event: %v", err), tool.CodeValidation)
	}

	if strings.TrimSpace(in.CalendarID) == "" {
		return "", tool.NewToolError(InsertEventToolName, "'calendar_id' is missing", tool.CodeValidation)
	}

	start, zone, err := ResolveTime(in.Start, false, k.defaultZone)
	if err != nil {
		return "", tool.NewToolError(InsertEventToolName, "'start' "+err.Error(), tool.CodeValidation)
	}

	end, _, err := ResolveTime(in.End, true, k.defaultZone)
	if err != nil {
		return "", tool.NewToolError(InsertEventToolName, "'end' "+err.Error(), tool.CodeValidation)
	}

	if end.Before(start) {
		return "", tool.NewToolError(InsertEventToolName, "'end' must not be before 'start'", tool.CodeValidation)
	}

	event, err := k.backend.InsertEvent(ctx, Event{
		CalendarID:  strings.TrimSpace(in.CalendarID),
		Summary:     in.Summary,
		Location:    in.Location,
		Description: in.Description,
		Start:       start,
		End:         end,
		TimeZone:    zone,
		Attendees:   in.Attendees,
	})
	if err != nil {
		return "", err
	}

	return toJSON(event)
}

func parseLimit(raw string, def int) (int, error) {
	raw = strings.Trim(strings.TrimSpace(raw), "\"'`")
	if raw == "" {
		return def, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid maximum %q, expected a positive number", raw)
	}

	return n, nil
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	return string(b), nil
}
