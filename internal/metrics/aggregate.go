package metrics

import (
	"math"
	"sort"

	"github.com/omid3098/conduit-monitor/internal/models"
)

// Aggregate buckets snapshots from any number of servers into a fleet-wide
// series. Snapshots of one server inside one bucket are first averaged into a
// single point, so a server polled more often than the bucket width does not
// outweigh the others. The per-server points are then combined: CPU percent
// is averaged across servers, every other field is summed.
//
// The result is ordered by ascending bucket timestamp.
func Aggregate(snapshots []models.MetricsSnapshot, rangeSeconds int64) []models.MetricsDataPoint {
	width := BucketWidth(rangeSeconds)

	buckets := make(map[int64]map[string][]models.MetricsDataPoint)
	for _, snap := range snapshots {
		key := BucketStart(snap.Point.Timestamp, width)
		byServer, ok := buckets[key]
		if !ok {
			byServer = make(map[string][]models.MetricsDataPoint)
			buckets[key] = byServer
		}
		byServer[snap.ServerID] = append(byServer[snap.ServerID], snap.Point)
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]models.MetricsDataPoint, 0, len(keys))
	for _, ts := range keys {
		byServer := buckets[ts]
		perServer := make([]models.MetricsDataPoint, 0, len(byServer))
		for _, points := range byServer {
			perServer = append(perServer, averageServer(ts, points))
		}
		out = append(out, combineServers(ts, perServer))
	}
	return out
}

// averageServer collapses one server's snapshots in a bucket into their mean.
// Country connections are averaged per poll and rounded to whole connections.
func averageServer(bucket int64, points []models.MetricsDataPoint) models.MetricsDataPoint {
	n := float64(len(points))
	avg := models.MetricsDataPoint{Timestamp: bucket}
	countries := make(map[string]int)

	for _, p := range points {
		avg.SystemCPU += p.SystemCPU
		avg.SystemMemoryUsed += p.SystemMemoryUsed
		avg.SystemMemoryTotal += p.SystemMemoryTotal
		avg.SystemNetIn += p.SystemNetIn
		avg.SystemNetOut += p.SystemNetOut
		avg.TotalConnections += p.TotalConnections
		avg.UniqueIPs += p.UniqueIPs
		avg.ContainerCount += p.ContainerCount
		avg.TotalContainerCPU += p.TotalContainerCPU
		avg.TotalContainerMemory += p.TotalContainerMemory
		for _, c := range p.ClientsByCountry {
			countries[c.Country] += c.Connections
		}
	}

	avg.SystemCPU /= n
	avg.SystemMemoryUsed /= n
	avg.SystemMemoryTotal /= n
	avg.SystemNetIn /= n
	avg.SystemNetOut /= n
	avg.TotalConnections /= n
	avg.UniqueIPs /= n
	avg.ContainerCount /= n
	avg.TotalContainerCPU /= n
	avg.TotalContainerMemory /= n

	for country, total := range countries {
		countries[country] = int(math.Round(float64(total) / n))
	}
	avg.ClientsByCountry = sortedCountries(countries)
	return avg
}

// combineServers merges per-server points of one bucket into the fleet point.
func combineServers(bucket int64, points []models.MetricsDataPoint) models.MetricsDataPoint {
	out := models.MetricsDataPoint{Timestamp: bucket}
	countries := make(map[string]int)

	for _, p := range points {
		out.SystemCPU += p.SystemCPU
		out.SystemMemoryUsed += p.SystemMemoryUsed
		out.SystemMemoryTotal += p.SystemMemoryTotal
		out.SystemNetIn += p.SystemNetIn
		out.SystemNetOut += p.SystemNetOut
		out.TotalConnections += p.TotalConnections
		out.UniqueIPs += p.UniqueIPs
		out.ContainerCount += p.ContainerCount
		out.TotalContainerCPU += p.TotalContainerCPU
		out.TotalContainerMemory += p.TotalContainerMemory
		for _, c := range p.ClientsByCountry {
			countries[c.Country] += c.Connections
		}
	}
	if len(points) > 0 {
		out.SystemCPU /= float64(len(points))
	}

	out.ClientsByCountry = sortedCountries(countries)
	return out
}

// sortedCountries orders countries by connections, highest first. Ties are
// broken by country code to keep responses stable.
func sortedCountries(m map[string]int) []models.CountryClients {
	list := make([]models.CountryClients, 0, len(m))
	for country, conns := range m {
		list = append(list, models.CountryClients{Country: country, Connections: conns})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Connections != list[j].Connections {
			return list[i].Connections > list[j].Connections
		}
		return list[i].Country < list[j].Country
	})
	return list
}
