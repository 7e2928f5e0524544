package models

import "time"

// Server represents a registered conduit agent.
type Server struct {
	ID          string     `json:"id"`
	Host        string     `json:"-"` // Internal use
	Port        int        `json:"-"` // Internal use
	Secret      string     `json:"-"` // Never expose this to the client
	Label       *string    `json:"label"`
	AgentID     *string    `json:"server_id"` // Reported by the agent itself
	Tags        []string   `json:"tags"`
	CreatedAt   time.Time  `json:"created_at"`
	FirstSeenAt *time.Time `json:"first_seen_at"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
}

// CreateServerRequest is the body accepted when registering a new server.
type CreateServerRequest struct {
	URI   string `json:"uri" validate:"required,startswith=conduit://"`
	Label string `json:"label" validate:"max=100"`
}

// UpdateTagsRequest replaces the tag set of a server.
type UpdateTagsRequest struct {
	Tags []string `json:"tags" validate:"max=20,dive,required,max=32"`
}

// ServerStatus is the most recent poll outcome for a server.
type ServerStatus struct {
	*AgentStatusResponse
	Stale bool `json:"stale"`
}

// StatusError is the body returned when the latest poll of a server failed.
type StatusError struct {
	Error     string `json:"error"`
	CheckedAt int64  `json:"checked_at"`
}
