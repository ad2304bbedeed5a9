package calendar

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hupe1980/tourmesh/logging"
)

// SQLiteBackend keeps calendars in a local SQLite database.
type SQLiteBackend struct {
	db     *sql.DB
	logger logging.Logger
}

// OpenSQLite opens (or creates) the calendar database at path.
func OpenSQLite(path string, logger logging.Logger) (*SQLiteBackend, error) {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	b := &SQLiteBackend{db: db, logger: logger}
	if err := b.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return b, nil
}

func (b *SQLiteBackend) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			summary TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
			summary TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			start_at TEXT NOT NULL,
			end_at TEXT NOT NULL,
			time_zone TEXT NOT NULL,
			attendees TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id, start_at)`,
		`INSERT OR IGNORE INTO calendars (id, summary, description) VALUES ('primary', 'Primary', 'Default calendar')`,
	}

	for _, stmt := range stmts {
		if _, err := b.db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}

// Close releases the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// CreateCalendar adds a calendar titled summary.
func (b *SQLiteBackend) CreateCalendar(ctx context.Context, summary string) (*Calendar, error) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, errors.New("calendar title must not be empty")
	}

	c := &Calendar{ID: uuid.NewString(), Summary: summary}

	if _, err := b.db.ExecContext(ctx, `INSERT INTO calendars (id, summary) VALUES (?, ?)`, c.ID, c.Summary); err != nil {
		return nil, fmt.Errorf("insert calendar: %w", err)
	}

	b.logger.Info("calendar.created", "calendar_id", c.ID, "summary", summary)

	return c, nil
}

// ListCalendars returns up to limit calendars, primary first.
func (b *SQLiteBackend) ListCalendars(ctx context.Context, limit int) ([]Calendar, error) {
	rows, err := b.db.QueryContext(ctx,
		`SELECT id, summary, description FROM calendars
		ORDER BY id != 'primary', created_at, summary
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer rows.Close()

	var out []Calendar
	for rows.Next() {
		var c Calendar
		if err := rows.Scan(&c.ID, &c.Summary, &c.Description); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}

// ListEvents returns up to limit events of calendarID ordered by start.
func (b *SQLiteBackend) ListEvents(ctx context.Context, calendarID string, limit int) ([]Event, error) {
	if err := b.requireCalendar(ctx, calendarID); err != nil {
		return nil, err
	}

	rows, err := b.db.QueryContext(ctx,
		`SELECT id, calendar_id, summary, location, description, start_at, end_at, time_zone, attendees
		FROM events WHERE calendar_id = ?
		ORDER BY start_at
		LIMIT ?`, calendarID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e             Event
			start, end    string
			attendeesJSON string
		)

		if err := rows.Scan(&e.ID, &e.CalendarID, &e.Summary, &e.Location, &e.Description,
			&start, &end, &e.TimeZone, &attendeesJSON); err != nil {
			return nil, err
		}

		loc, err := time.LoadLocation(e.TimeZone)
		if err != nil {
			loc = time.UTC
		}

		if e.Start, err = time.Parse(time.RFC3339, start); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		if e.End, err = time.Parse(time.RFC3339, end); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}

		e.Start, e.End = e.Start.In(loc), e.End.In(loc)
		e.Link = eventLink(e.CalendarID, e.ID)
		_ = json.Unmarshal([]byte(attendeesJSON), &e.Attendees)

		out = append(out, e)
	}

	return out, rows.Err()
}

// InsertEvent stores event and returns it with id and link set.
func (b *SQLiteBackend) InsertEvent(ctx context.Context, event Event) (*Event, error) {
	if err := b.requireCalendar(ctx, event.CalendarID); err != nil {
		return nil, err
	}

	if event.End.Before(event.Start) {
		return nil, errors.New("event end must not be before its start")
	}

	if event.TimeZone == "" {
		event.TimeZone = event.Start.Location().String()
	}

	attendees, err := json.Marshal(event.Attendees)
	if err != nil {
		return nil, err
	}

	event.ID = uuid.NewString()
	event.Link = eventLink(event.CalendarID, event.ID)

	if _, err := b.db.ExecContext(ctx,
		`INSERT INTO events (id, calendar_id, summary, location, description, start_at, end_at, time_zone, attendees)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.CalendarID, event.Summary, event.Location, event.Description,
		event.Start.UTC().Format(time.RFC3339), event.End.UTC().Format(time.RFC3339),
		event.TimeZone, string(attendees)); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	b.logger.Info("calendar.event.inserted", "calendar_id", event.CalendarID, "event_id", event.ID)

	return &event, nil
}

func (b *SQLiteBackend) requireCalendar(ctx context.Context, id string) error {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendars WHERE id = ?`, id).Scan(&n); err != nil {
		return fmt.Errorf("lookup calendar: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %q", ErrCalendarNotFound, id)
	}

	return nil
}

func eventLink(calendarID, eventID string) string {
	return "tourmesh://calendar/" + calendarID + "/events/" + eventID
}
