// Package calendar implements a local calendar backend and the tools the
// calendar agent uses to create calendars and schedule itinerary events.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// PrimaryID is the calendar that always exists.
const PrimaryID = "primary"

// DefaultTimeZone applies when an event time carries no zone.
const DefaultTimeZone = "America/Fortaleza"

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// ErrCalendarNotFound is returned for operations on an unknown calendar id.
var ErrCalendarNotFound = errors.New("calendar not found")

// Calendar is a named collection of events.
type Calendar struct {
	ID          string `json:"id"`
	Summary     string `json:"name"`
	Description string `json:"description"`
}

// EventTime is either a dateTime with an optional zone or an all-day date.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
	Date     string `json:"date,omitempty"`
}

// Attendee is an invited participant.
type Attendee struct {
	Email string `json:"email"`
}

// Event is a scheduled calendar entry.
type Event struct {
	ID          string     `json:"id"`
	CalendarID  string     `json:"calendar_id"`
	Summary     string     `json:"summary"`
	Location    string     `json:"location,omitempty"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	TimeZone    string     `json:"time_zone"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Link        string     `json:"link"`
}

// Backend stores calendars and events.
type Backend interface {
	CreateCalendar(ctx context.Context, summary string) (*Calendar, error)
	ListCalendars(ctx context.Context, limit int) ([]Calendar, error)
	ListEvents(ctx context.Context, calendarID string, limit int) ([]Event, error)
	InsertEvent(ctx context.Context, event Event) (*Event, error)
}

// ResolveTime converts an EventTime into an instant. Date-only values expand
// to the first second of the day for a start and the last for an end, in
// defaultZone.
func ResolveTime(t EventTime, isEnd bool, defaultZone string) (time.Time, string, error) {
	zone := defaultZone
	if zone == "" {
		zone = DefaultTimeZone
	}

	value := strings.TrimSpace(t.DateTime)

	switch {
	case value != "":
		if t.TimeZone != "" {
			zone = t.TimeZone
		}
	case strings.TrimSpace(t.Date) != "":
		suffix := "T00:00:00"
		if isEnd {
			suffix = "T23:59:59"
		}
		value = strings.TrimSpace(t.Date) + suffix
	default:
		return time.Time{}, "", errors.New("must contain 'dateTime' or 'date'")
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, "", fmt.Errorf("unknown time zone %q", zone)
	}

	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts.In(loc), zone, nil
	}

	ts, err := time.ParseInLocation(dateTimeLayout, value, loc)
	if err != nil {
		if d, derr := time.ParseInLocation(dateLayout, value, loc); derr == nil {
			return d, zone, nil
		}

		return time.Time{}, "", fmt.Errorf("invalid time %q, expected YYYY-MM-DDTHH:MM:SS", value)
	}

	return ts, zone, nil
}
