package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/omid3098/conduit-monitor/internal/services"
	ws "github.com/omid3098/conduit-monitor/internal/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles upgrading HTTP connections to WebSocket connections.
type WebSocketHandler struct {
	hub      *ws.Hub
	servers  services.ServerServiceProvider
	status   StatusReader
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocketHandler. Upgrades are accepted
// from allowedOrigins, or from any origin when the list is empty.
func NewWebSocketHandler(hub *ws.Hub, servers services.ServerServiceProvider, status StatusReader, allowedOrigins []string) *WebSocketHandler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &WebSocketHandler{
		hub:     hub,
		servers: servers,
		status:  status,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(origins) == 0 || origin == "" || origins[origin] || origins["*"]
			},
		},
	}
}

// Serve handles /ws (every server) and /servers/{id}/ws (one server).
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	serverID := chi.URLParam(r, "id")
	if serverID != "" {
		if _, err := h.servers.GetServerByID(serverID); err != nil {
			writeServiceError(w, err, "retrieve server")
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(h.hub, conn, serverID)
	if !h.hub.Join(client) {
		conn.Close()
		return
	}
	h.sendSnapshot(client)

	go client.WritePump()
	go func() {
		client.ReadPump(h.handleIncomingWSMessage)
		h.hub.Leave(client)
	}()
}

// handleIncomingWSMessage processes messages received from a websocket client.
func (h *WebSocketHandler) handleIncomingWSMessage(client *ws.Client, message []byte) {
	var req ws.Request
	if err := json.Unmarshal(message, &req); err != nil {
		log.Warn().Err(err).Msg("Error decoding websocket message")
		h.hub.SendTo(client, ws.NewErrorMessage("invalid message"))
		return
	}

	switch req.Action {
	case "refresh":
		h.sendSnapshot(client)
	default:
		log.Warn().Str("action", req.Action).Msg("Unknown websocket action received")
		h.hub.SendTo(client, ws.NewErrorMessage("Unknown action: "+req.Action))
	}
}

// sendSnapshot sends the latest known status of every server the client
// follows.
func (h *WebSocketHandler) sendSnapshot(client *ws.Client) {
	var ids []string
	if client.ServerID == ws.GlobalTopic {
		servers, err := h.servers.GetAllServers()
		if err != nil {
			log.Error().Err(err).Msg("Failed to load servers for websocket snapshot")
			return
		}
		for _, srv := range servers {
			ids = append(ids, srv.ID)
		}
	} else {
		ids = []string{client.ServerID}
	}

	for _, id := range ids {
		snap, ok := h.status.Status(id)
		if !ok {
			continue
		}
		var payload interface{}
		if snap.Err != nil {
			payload = models.StatusError{Error: agent.ErrorKind(snap.Err), CheckedAt: snap.CheckedAt.Unix()}
		} else {
			payload = models.ServerStatus{AgentStatusResponse: snap.Report, Stale: h.status.IsStale(snap.Report)}
		}
		h.hub.SendTo(client, ws.NewServerStatusMessage(id, payload))
	}
}
