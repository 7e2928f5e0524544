package models

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
)

// CountryClients is the number of connections originating from one country.
type CountryClients struct {
	Country     string `json:"country"`
	Connections int    `json:"connections"`
}

// UnmarshalJSON accepts any numeric form of connections, including floats and
// numeric strings. Values that are not numbers decode as 0.
func (c *CountryClients) UnmarshalJSON(data []byte) error {
	var aux struct {
		Country     string      `json:"country"`
		Connections interface{} `json:"connections"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return err
		}
	}

	c.Country = aux.Country
	c.Connections = 0
	switch v := aux.Connections.(type) {
	case float64:
		c.Connections = int(math.Round(v))
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Connections = int(math.Round(f))
		}
	}
	return nil
}

// MetricsDataPoint is the fixed-shape metrics record used both for stored
// snapshots and for aggregated history. In an aggregated series Timestamp is
// the start of the bucket the point represents.
type MetricsDataPoint struct {
	Timestamp            int64            `json:"timestamp"`
	SystemCPU            float64          `json:"system_cpu"`
	SystemMemoryUsed     float64          `json:"system_memory_used"`
	SystemMemoryTotal    float64          `json:"system_memory_total"`
	SystemNetIn          float64          `json:"system_net_in"`
	SystemNetOut         float64          `json:"system_net_out"`
	TotalConnections     float64          `json:"total_connections"`
	UniqueIPs            float64          `json:"unique_ips"`
	ContainerCount       float64          `json:"container_count"`
	TotalContainerCPU    float64          `json:"total_container_cpu"`
	TotalContainerMemory float64          `json:"total_container_memory"`
	ClientsByCountry     []CountryClients `json:"clients_by_country"`
}

// MetricsSnapshot is one raw observation from a single poll of a server.
type MetricsSnapshot struct {
	ServerID string
	Point    MetricsDataPoint
}

// HistoryResponse is returned by the aggregated fleet history endpoint.
type HistoryResponse struct {
	Range      string             `json:"range"`
	DataPoints int                `json:"data_points"`
	History    []MetricsDataPoint `json:"history"`
}

// ServerHistoryResponse is returned by the per-server history endpoint.
type ServerHistoryResponse struct {
	ServerID   string             `json:"server_id"`
	Range      string             `json:"range"`
	DataPoints int                `json:"data_points"`
	History    []MetricsDataPoint `json:"history"`
}
