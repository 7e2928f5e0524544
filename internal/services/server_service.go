package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/rs/zerolog/log"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	ErrServerNotFound  = errors.New("server not found")
	ErrDuplicateServer = errors.New("a server with this host and port already exists")
)

// ServerServiceProvider defines the interface for server services.
type ServerServiceProvider interface {
	GetAllServers() ([]models.Server, error)
	GetServerByID(id string) (models.Server, error)
	CreateServer(uri, label string) (models.Server, error)
	DeleteServer(id string) error
	SetTags(id string, tags []string) (models.Server, error)
	GetAllTags() ([]string, error)
	RecordAgentSeen(id, agentID string, at time.Time) error
}

// ServerService manages the registry of monitored agents.
type ServerService struct {
	db *sql.DB
}

// NewServerService creates a new ServerService.
func NewServerService(db *sql.DB) *ServerService {
	return &ServerService{db: db}
}

const serverColumns = "id, host, port, secret, label, server_id, created_at, first_seen_at, last_seen_at"

// GetAllServers retrieves every registered server, oldest first.
func (s *ServerService) GetAllServers() ([]models.Server, error) {
	rows, err := s.db.Query("SELECT " + serverColumns + " FROM servers ORDER BY created_at ASC, id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	servers := make([]models.Server, 0)
	for rows.Next() {
		srv, err := scanServer(rows)
		if err != nil {
			return nil, err
		}
		servers = append(servers, srv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tags, err := s.tagsByServer()
	if err != nil {
		return nil, err
	}
	for i := range servers {
		if t, ok := tags[servers[i].ID]; ok {
			servers[i].Tags = t
		}
	}
	return servers, nil
}

// GetServerByID retrieves a single server by its ID.
func (s *ServerService) GetServerByID(id string) (models.Server, error) {
	row := s.db.QueryRow("SELECT "+serverColumns+" FROM servers WHERE id = ?", id)
	srv, err := scanServer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Server{}, fmt.Errorf("server with id %s: %w", id, ErrServerNotFound)
		}
		return models.Server{}, err
	}

	tags, err := s.serverTags(id)
	if err != nil {
		return models.Server{}, err
	}
	srv.Tags = tags
	return srv, nil
}

// CreateServer registers a new agent from its conduit:// URI.
func (s *ServerService) CreateServer(uri, label string) (models.Server, error) {
	ep, err := agent.ParseURI(uri)
	if err != nil {
		return models.Server{}, err
	}

	var exists int
	err = s.db.QueryRow("SELECT COUNT(1) FROM servers WHERE host = ? AND port = ?", ep.Host, ep.Port).Scan(&exists)
	if err != nil {
		return models.Server{}, err
	}
	if exists > 0 {
		return models.Server{}, fmt.Errorf("%s:%d: %w", ep.Host, ep.Port, ErrDuplicateServer)
	}

	srv := models.Server{
		ID:        uuid.New().String(),
		Host:      ep.Host,
		Port:      ep.Port,
		Secret:    ep.Secret,
		Tags:      []string{},
		CreatedAt: time.Now().UTC(),
	}
	if label = strings.TrimSpace(label); label != "" {
		srv.Label = &label
	}

	stmt, err := s.db.Prepare("INSERT INTO servers (id, host, port, secret, label, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return models.Server{}, err
	}
	defer stmt.Close()

	// The count above can race with a concurrent registration; the UNIQUE
	// constraint settles it.
	if _, err = stmt.Exec(srv.ID, srv.Host, srv.Port, srv.Secret, srv.Label, srv.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return models.Server{}, fmt.Errorf("%s:%d: %w", ep.Host, ep.Port, ErrDuplicateServer)
		}
		return models.Server{}, err
	}

	log.Info().Str("server_id", srv.ID).Str("host", srv.Host).Int("port", srv.Port).Msg("Registered server")
	return srv, nil
}

func isUniqueViolation(err error) bool {
	var sqlErr *sqlite.Error
	return errors.As(err, &sqlErr) && sqlErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// DeleteServer removes a server along with its tags, metrics history and
// uptime events.
func (s *ServerService) DeleteServer(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM servers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete server from DB: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("server with id %s: %w", id, ErrServerNotFound)
	}

	for _, q := range []string{
		"DELETE FROM server_tags WHERE server_id = ?",
		"DELETE FROM metrics_history WHERE server_id = ?",
		"DELETE FROM uptime_events WHERE server_id = ?",
	} {
		if _, err := tx.Exec(q, id); err != nil {
			return fmt.Errorf("failed to delete server data: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	log.Info().Str("server_id", id).Msg("Deleted server")
	return nil
}

// SetTags replaces the tag set of a server. Tags are trimmed, lowercased and
// deduplicated.
func (s *ServerService) SetTags(id string, tags []string) (models.Server, error) {
	if _, err := s.GetServerByID(id); err != nil {
		return models.Server{}, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return models.Server{}, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM server_tags WHERE server_id = ?", id); err != nil {
		return models.Server{}, err
	}
	stmt, err := tx.Prepare("INSERT OR IGNORE INTO server_tags (server_id, tag) VALUES (?, ?)")
	if err != nil {
		return models.Server{}, err
	}
	defer stmt.Close()

	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, err := stmt.Exec(id, tag); err != nil {
			return models.Server{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return models.Server{}, err
	}

	return s.GetServerByID(id)
}

// GetAllTags returns the distinct tags in use, sorted.
func (s *ServerService) GetAllTags() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT tag FROM server_tags ORDER BY tag ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// RecordAgentSeen stores the identifier the agent reported and bumps the
// first/last seen timestamps.
func (s *ServerService) RecordAgentSeen(id, agentID string, at time.Time) error {
	var reported any
	if agentID != "" {
		reported = agentID
	}
	_, err := s.db.Exec(`
		UPDATE servers
		SET server_id = COALESCE(?, server_id),
		    first_seen_at = COALESCE(first_seen_at, ?),
		    last_seen_at = ?
		WHERE id = ?`, reported, at.UTC(), at.UTC(), id)
	return err
}

func (s *ServerService) serverTags(id string) ([]string, error) {
	rows, err := s.db.Query("SELECT tag FROM server_tags WHERE server_id = ? ORDER BY tag ASC", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]string, 0)
	for rows.Next() {
		var tag string
		if err := rows.Scan(&tag); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

func (s *ServerService) tagsByServer() (map[string][]string, error) {
	rows, err := s.db.Query("SELECT server_id, tag FROM server_tags")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make(map[string][]string)
	for rows.Next() {
		var id, tag string
		if err := rows.Scan(&id, &tag); err != nil {
			return nil, err
		}
		tags[id] = append(tags[id], tag)
	}
	for _, t := range tags {
		sort.Strings(t)
	}
	return tags, rows.Err()
}

// scanServer is a helper function to scan a single row into a Server.
func scanServer(scanner interface{ Scan(...any) error }) (models.Server, error) {
	var srv models.Server
	var label, agentID sql.NullString
	var firstSeen, lastSeen sql.NullTime

	err := scanner.Scan(&srv.ID, &srv.Host, &srv.Port, &srv.Secret, &label, &agentID,
		&srv.CreatedAt, &firstSeen, &lastSeen)
	if err != nil {
		return models.Server{}, err
	}

	if label.Valid {
		srv.Label = &label.String
	}
	if agentID.Valid {
		srv.AgentID = &agentID.String
	}
	if firstSeen.Valid {
		srv.FirstSeenAt = &firstSeen.Time
	}
	if lastSeen.Valid {
		srv.LastSeenAt = &lastSeen.Time
	}
	srv.Tags = []string{}
	return srv, nil
}
