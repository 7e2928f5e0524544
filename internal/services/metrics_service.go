package services

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omid3098/conduit-monitor/internal/metrics"
	"github.com/omid3098/conduit-monitor/internal/models"
)

// MetricsServiceProvider defines the interface for metrics history services.
type MetricsServiceProvider interface {
	StoreSnapshot(serverID string, report models.AgentStatusResponse) error
	GetAggregatedHistory(rangeLabel string) (models.HistoryResponse, error)
	GetServerHistory(serverID, rangeLabel string) (models.ServerHistoryResponse, error)
	Prune(retentionHours int) (int64, error)
}

// MetricsService stores normalized snapshots and serves history views.
type MetricsService struct {
	db        *sql.DB
	maxPoints int
	now       func() time.Time
}

// NewMetricsService creates a new MetricsService. History responses are
// downsampled to at most maxPoints (+1 for the final point).
func NewMetricsService(db *sql.DB, maxPoints int) *MetricsService {
	if maxPoints <= 0 {
		maxPoints = metrics.DefaultMaxPoints
	}
	return &MetricsService{db: db, maxPoints: maxPoints, now: time.Now}
}

// StoreSnapshot normalizes a report and appends it to the history table.
func (s *MetricsService) StoreSnapshot(serverID string, report models.AgentStatusResponse) error {
	snap := metrics.NewSnapshot(serverID, report)
	data, err := json.Marshal(snap.Point)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	stmt, err := s.db.Prepare("INSERT INTO metrics_history (server_id, timestamp, data_json) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(snap.ServerID, snap.Point.Timestamp, string(data))
	return err
}

// GetAggregatedHistory returns the fleet-wide bucketed series for a range.
func (s *MetricsService) GetAggregatedHistory(rangeLabel string) (models.HistoryResponse, error) {
	label, rangeSeconds := metrics.ResolveRange(rangeLabel)

	snapshots, err := s.snapshotsSince("", s.since(rangeSeconds))
	if err != nil {
		return models.HistoryResponse{}, fmt.Errorf("loading snapshots: %w", err)
	}

	history := metrics.Downsample(metrics.Aggregate(snapshots, rangeSeconds), s.maxPoints)
	return models.HistoryResponse{
		Range:      label,
		DataPoints: len(history),
		History:    history,
	}, nil
}

// GetServerHistory returns one server's raw snapshots for a range, downsampled.
func (s *MetricsService) GetServerHistory(serverID, rangeLabel string) (models.ServerHistoryResponse, error) {
	label, rangeSeconds := metrics.ResolveRange(rangeLabel)

	snapshots, err := s.snapshotsSince(serverID, s.since(rangeSeconds))
	if err != nil {
		return models.ServerHistoryResponse{}, fmt.Errorf("loading snapshots: %w", err)
	}

	points := make([]models.MetricsDataPoint, 0, len(snapshots))
	for _, snap := range snapshots {
		points = append(points, snap.Point)
	}
	history := metrics.Downsample(points, s.maxPoints)
	return models.ServerHistoryResponse{
		ServerID:   serverID,
		Range:      label,
		DataPoints: len(history),
		History:    history,
	}, nil
}

// Prune deletes snapshots older than the retention horizon and returns how
// many rows were removed.
func (s *MetricsService) Prune(retentionHours int) (int64, error) {
	cutoff := s.now().Unix() - int64(retentionHours)*3600
	res, err := s.db.Exec("DELETE FROM metrics_history WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// since converts a lookback into a lower timestamp bound; 0 means no bound.
func (s *MetricsService) since(rangeSeconds int64) int64 {
	if rangeSeconds <= 0 {
		return 0
	}
	return s.now().Unix() - rangeSeconds
}

// snapshotsSince loads snapshots with timestamp >= since in ascending order,
// for every server when serverID is empty.
func (s *MetricsService) snapshotsSince(serverID string, since int64) ([]models.MetricsSnapshot, error) {
	query := "SELECT server_id, data_json FROM metrics_history WHERE timestamp >= ?"
	args := []any{since}
	if serverID != "" {
		query += " AND server_id = ?"
		args = append(args, serverID)
	}
	query += " ORDER BY timestamp ASC, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.MetricsSnapshot
	for rows.Next() {
		var snap models.MetricsSnapshot
		var data string
		if err := rows.Scan(&snap.ServerID, &data); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &snap.Point); err != nil {
			return nil, fmt.Errorf("decoding snapshot for server %s: %w", snap.ServerID, err)
		}
		if snap.Point.ClientsByCountry == nil {
			snap.Point.ClientsByCountry = []models.CountryClients{}
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}
