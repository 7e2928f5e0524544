// Package metrics turns raw agent reports into fixed-shape data points and
// aggregates them into bucketed, downsampled history series.
package metrics

import "github.com/omid3098/conduit-monitor/internal/models"

// Normalize converts an agent status report into a MetricsDataPoint.
// Missing or null fields become zero; it never fails.
func Normalize(report models.AgentStatusResponse) models.MetricsDataPoint {
	point := models.MetricsDataPoint{
		Timestamp:        report.Timestamp,
		ContainerCount:   float64(report.TotalContainers),
		ClientsByCountry: make([]models.CountryClients, 0, len(report.ClientsByCountry)),
	}

	if sys := report.System; sys != nil {
		point.SystemCPU = sys.CPUPercent
		point.SystemMemoryUsed = sys.MemoryUsedMB
		point.SystemMemoryTotal = sys.MemoryTotalMB
		point.SystemNetIn = sys.NetInMbps
		point.SystemNetOut = sys.NetOutMbps
	}
	if conns := report.Connections; conns != nil {
		point.TotalConnections = conns.Total
		point.UniqueIPs = conns.UniqueIPs
	}

	for _, c := range report.Containers {
		point.TotalContainerCPU += c.CPUPercent
		point.TotalContainerMemory += c.MemoryMB
	}

	point.ClientsByCountry = append(point.ClientsByCountry, report.ClientsByCountry...)

	return point
}

// NewSnapshot normalizes a report and tags it with the registered server ID.
func NewSnapshot(serverID string, report models.AgentStatusResponse) models.MetricsSnapshot {
	return models.MetricsSnapshot{ServerID: serverID, Point: Normalize(report)}
}
