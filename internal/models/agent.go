package models

// The types below mirror the JSON contract of the conduit agent's /status
// endpoint. Objects the agent may omit are pointers so that "missing" and
// "zero" can be told apart by the normalizer.

// AgentStatusResponse is a full status report from an agent.
type AgentStatusResponse struct {
	ServerID          string            `json:"server_id"`
	Timestamp         int64             `json:"timestamp"`
	TotalContainers   int               `json:"total_containers"`
	ConnectedClients  int               `json:"connected_clients,omitempty"`
	ConnectingClients int               `json:"connecting_clients,omitempty"`
	System            *AgentSystem      `json:"system"`
	Connections       *AgentConnections `json:"connections"`
	ClientsByCountry  []CountryClients  `json:"clients_by_country"`
	Containers        []AgentContainer  `json:"containers"`
}

// AgentSystem holds host-level metrics.
type AgentSystem struct {
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryUsedMB  float64 `json:"memory_used_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	LoadAvg1m     float64 `json:"load_avg_1m"`
	LoadAvg5m     float64 `json:"load_avg_5m"`
	LoadAvg15m    float64 `json:"load_avg_15m"`
	DiskUsedGB    float64 `json:"disk_used_gb"`
	DiskTotalGB   float64 `json:"disk_total_gb"`
	NetInMbps     float64 `json:"net_in_mbps"`
	NetOutMbps    float64 `json:"net_out_mbps"`
	NetErrors     float64 `json:"net_errors"`
	NetDrops      float64 `json:"net_drops"`
}

// AgentConnections holds connection counts seen by the agent.
type AgentConnections struct {
	Total     float64        `json:"total"`
	UniqueIPs float64        `json:"unique_ips"`
	States    map[string]int `json:"states,omitempty"`
}

// AgentContainer is one conduit container managed by the agent.
type AgentContainer struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Status     string           `json:"status"` // "running", "down", "unhealthy"
	CPUPercent float64          `json:"cpu_percent"`
	MemoryMB   float64          `json:"memory_mb"`
	Uptime     string           `json:"uptime"`
	AppMetrics *AgentAppMetrics `json:"app_metrics"`
}

// AgentAppMetrics are the per-container application counters, nil while pending.
type AgentAppMetrics struct {
	Connections int   `json:"connections"`
	TrafficIn   int64 `json:"traffic_in"`
	TrafficOut  int64 `json:"traffic_out"`
}

// AgentHealth is the body returned by an agent's /health endpoint.
type AgentHealth struct {
	Status string `json:"status"`
}
