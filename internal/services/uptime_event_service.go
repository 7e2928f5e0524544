package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/omid3098/conduit-monitor/internal/models"
)

// UptimeEventService persists availability transitions. It implements
// uptime.EventStore.
type UptimeEventService struct {
	db *sql.DB
}

// NewUptimeEventService creates a new UptimeEventService.
func NewUptimeEventService(db *sql.DB) *UptimeEventService {
	return &UptimeEventService{db: db}
}

// AppendEvent adds a transition to the event log.
func (s *UptimeEventService) AppendEvent(ev models.UptimeEvent) error {
	if !ev.EventType.Valid() {
		return fmt.Errorf("unknown event type %q", ev.EventType)
	}

	stmt, err := s.db.Prepare("INSERT INTO uptime_events (server_id, event_type, timestamp) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(ev.ServerID, string(ev.EventType), ev.Timestamp)
	return err
}

// LastEvent returns the most recent event recorded for a server, or nil.
func (s *UptimeEventService) LastEvent(serverID string) (*models.UptimeEvent, error) {
	row := s.db.QueryRow(`
		SELECT server_id, event_type, timestamp FROM uptime_events
		WHERE server_id = ? ORDER BY timestamp DESC, id DESC LIMIT 1`, serverID)
	return scanOptionalEvent(row)
}

// LastEventBefore returns the most recent event strictly before ts, or nil.
func (s *UptimeEventService) LastEventBefore(serverID string, ts int64) (*models.UptimeEvent, error) {
	row := s.db.QueryRow(`
		SELECT server_id, event_type, timestamp FROM uptime_events
		WHERE server_id = ? AND timestamp < ? ORDER BY timestamp DESC, id DESC LIMIT 1`, serverID, ts)
	return scanOptionalEvent(row)
}

// EventsSince returns every event at or after since, oldest first.
func (s *UptimeEventService) EventsSince(serverID string, since int64) ([]models.UptimeEvent, error) {
	rows, err := s.db.Query(`
		SELECT server_id, event_type, timestamp FROM uptime_events
		WHERE server_id = ? AND timestamp >= ? ORDER BY timestamp ASC, id ASC`, serverID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.UptimeEvent, 0)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// scanEvent is a helper function to scan a single row into an UptimeEvent.
func scanEvent(scanner interface{ Scan(...any) error }) (models.UptimeEvent, error) {
	var ev models.UptimeEvent
	var eventType string
	if err := scanner.Scan(&ev.ServerID, &eventType, &ev.Timestamp); err != nil {
		return models.UptimeEvent{}, err
	}
	ev.EventType = models.EventType(eventType)
	return ev, nil
}

func scanOptionalEvent(row *sql.Row) (*models.UptimeEvent, error) {
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ev, nil
}
