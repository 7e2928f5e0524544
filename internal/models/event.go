package models

// EventType is the availability state recorded by an UptimeEvent.
type EventType string

const (
	EventOnline  EventType = "online"
	EventOffline EventType = "offline"
)

// Valid reports whether t is one of the two known states.
func (t EventType) Valid() bool {
	return t == EventOnline || t == EventOffline
}

// UptimeEvent is one availability transition for a server. Events are
// append-only and only written when the state differs from the previous one.
type UptimeEvent struct {
	ServerID  string    `json:"server_id"`
	EventType EventType `json:"event_type"`
	Timestamp int64     `json:"timestamp"` // epoch seconds
}

// DowntimeIncident is a contiguous interval during which a server was offline.
// End is nil while the incident is still open at query time.
type DowntimeIncident struct {
	Start    int64  `json:"start"`
	End      *int64 `json:"end"`
	Duration int64  `json:"duration"`
}

// UptimeResult holds the reconstructed availability for one lookback window.
type UptimeResult struct {
	UptimePercent     float64            `json:"uptime_percent"`
	DowntimeIncidents []DowntimeIncident `json:"downtime_incidents"`
}

// ServerUptimeResponse is returned by the per-server uptime endpoint.
type ServerUptimeResponse struct {
	ServerID          string             `json:"server_id"`
	Range             string             `json:"range"`
	UptimePercent     float64            `json:"uptime_percent"`
	DowntimeIncidents []DowntimeIncident `json:"downtime_incidents"`
}

// ServerUptime is one entry of the fleet uptime response.
type ServerUptime struct {
	ServerID      string  `json:"server_id"`
	UptimePercent float64 `json:"uptime_percent"`
}

// FleetUptimeResponse is returned by the fleet uptime endpoint.
type FleetUptimeResponse struct {
	Range              string         `json:"range"`
	FleetUptimePercent float64        `json:"fleet_uptime_percent"`
	ServerUptimes      []ServerUptime `json:"server_uptimes"`
}
