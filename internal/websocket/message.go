package websocket

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

const (
	TypeServerStatus = "server_status"
	TypeError        = "error"
)

// Message defines the structure for websocket messages.
type Message struct {
	Type     string      `json:"type"`
	ServerID string      `json:"server_id,omitempty"`
	Payload  interface{} `json:"payload"`
}

// Request is a message sent by a client.
type Request struct {
	Action string `json:"action"`
}

// NewServerStatusMessage encodes a poll outcome for one server.
func NewServerStatusMessage(serverID string, payload interface{}) []byte {
	return encode(Message{Type: TypeServerStatus, ServerID: serverID, Payload: payload})
}

// NewErrorMessage encodes an error reply.
func NewErrorMessage(msg string) []byte {
	return encode(Message{Type: TypeError, Payload: map[string]string{"error": msg}})
}

func encode(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Str("type", m.Type).Msg("Failed to encode websocket message")
		return []byte(`{"type":"error","payload":{"error":"encoding failed"}}`)
	}
	return data
}
