package services

import (
	"fmt"

	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/omid3098/conduit-monitor/internal/uptime"
)

// UptimeServiceProvider defines the interface for availability services.
type UptimeServiceProvider interface {
	Initialize(serverID string) error
	RecordStatusResult(serverID string, reachable bool) (bool, error)
	Forget(serverID string) error
	GetServerUptime(serverID, rangeLabel string) (models.ServerUptimeResponse, error)
	GetFleetUptime(rangeLabel string) (models.FleetUptimeResponse, error)
}

// UptimeService answers uptime queries for registered servers.
type UptimeService struct {
	tracker *uptime.Tracker
	servers ServerServiceProvider
}

// NewUptimeService creates a new UptimeService.
func NewUptimeService(tracker *uptime.Tracker, servers ServerServiceProvider) *UptimeService {
	return &UptimeService{tracker: tracker, servers: servers}
}

// Initialize warms the tracker's state cache for a server.
func (s *UptimeService) Initialize(serverID string) error {
	return s.tracker.Initialize(serverID)
}

// RecordStatusResult forwards a poll outcome to the tracker.
func (s *UptimeService) RecordStatusResult(serverID string, reachable bool) (bool, error) {
	return s.tracker.RecordStatusResult(serverID, reachable)
}

// Forget releases the tracker state held for a deleted server.
func (s *UptimeService) Forget(serverID string) error {
	return s.tracker.Forget(serverID)
}

// GetServerUptime returns availability and incidents of one server.
func (s *UptimeService) GetServerUptime(serverID, rangeLabel string) (models.ServerUptimeResponse, error) {
	if _, err := s.servers.GetServerByID(serverID); err != nil {
		return models.ServerUptimeResponse{}, err
	}

	label, rangeSeconds := uptime.ResolveRange(rangeLabel)
	result, err := s.tracker.ComputeUptime(serverID, rangeSeconds)
	if err != nil {
		return models.ServerUptimeResponse{}, fmt.Errorf("computing uptime for %s: %w", serverID, err)
	}

	return models.ServerUptimeResponse{
		ServerID:          serverID,
		Range:             label,
		UptimePercent:     result.UptimePercent,
		DowntimeIncidents: result.DowntimeIncidents,
	}, nil
}

// GetFleetUptime returns every server's uptime and their mean. An empty fleet
// reports 100%.
func (s *UptimeService) GetFleetUptime(rangeLabel string) (models.FleetUptimeResponse, error) {
	label, rangeSeconds := uptime.ResolveRange(rangeLabel)

	servers, err := s.servers.GetAllServers()
	if err != nil {
		return models.FleetUptimeResponse{}, fmt.Errorf("listing servers: %w", err)
	}

	perServer := make([]models.ServerUptime, 0, len(servers))
	percents := make([]float64, 0, len(servers))
	for _, srv := range servers {
		result, err := s.tracker.ComputeUptime(srv.ID, rangeSeconds)
		if err != nil {
			return models.FleetUptimeResponse{}, fmt.Errorf("computing uptime for %s: %w", srv.ID, err)
		}
		perServer = append(perServer, models.ServerUptime{ServerID: srv.ID, UptimePercent: result.UptimePercent})
		percents = append(percents, result.UptimePercent)
	}

	return models.FleetUptimeResponse{
		Range:              label,
		FleetUptimePercent: uptime.FleetPercent(percents),
		ServerUptimes:      perServer,
	}, nil
}
