package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/omid3098/conduit-monitor/internal/monitoring"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/rs/zerolog/log"
)

// StatusReader exposes the poller's latest results.
type StatusReader interface {
	Status(serverID string) (monitoring.StatusSnapshot, bool)
	IsStale(report *models.AgentStatusResponse) bool
}

// StatusHandler serves live agent state.
type StatusHandler struct {
	servers services.ServerServiceProvider
	status  StatusReader
	fetcher agent.Fetcher
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(servers services.ServerServiceProvider, status StatusReader, fetcher agent.Fetcher) *StatusHandler {
	return &StatusHandler{servers: servers, status: status, fetcher: fetcher}
}

// GetStatus returns the last polled report of a server. Servers that have not
// been polled yet are fetched directly.
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	server, err := h.servers.GetServerByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "retrieve server")
		return
	}

	snap, ok := h.status.Status(server.ID)
	if !ok {
		report, err := h.fetcher.FetchStatus(r.Context(), endpointOf(server))
		snap = monitoring.StatusSnapshot{Report: report, Err: err, CheckedAt: time.Now()}
	}

	if snap.Err != nil {
		kind := agent.ErrorKind(snap.Err)
		writeJSON(w, statusCodeFor(snap.Err), models.StatusError{Error: kind, CheckedAt: snap.CheckedAt.Unix()})
		return
	}
	writeJSON(w, http.StatusOK, models.ServerStatus{
		AgentStatusResponse: snap.Report,
		Stale:               h.status.IsStale(snap.Report),
	})
}

// GetHealth proxies the agent's /health endpoint.
func (h *StatusHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	server, err := h.servers.GetServerByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "retrieve server")
		return
	}

	health, err := h.fetcher.FetchHealth(r.Context(), endpointOf(server))
	if err != nil {
		log.Debug().Err(err).Str("server_id", server.ID).Msg("Health check failed")
		if errors.Is(err, agent.ErrAgent) {
			writeError(w, http.StatusBadGateway, "unhealthy")
		} else {
			writeError(w, http.StatusBadGateway, "offline")
		}
		return
	}
	writeJSON(w, http.StatusOK, health)
}

func statusCodeFor(err error) int {
	switch {
	case errors.Is(err, agent.ErrAuthFailed):
		return http.StatusUnauthorized
	case errors.Is(err, agent.ErrStartingUp):
		return http.StatusServiceUnavailable
	case errors.Is(err, agent.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func endpointOf(server models.Server) agent.Endpoint {
	return agent.Endpoint{Host: server.Host, Port: server.Port, Secret: server.Secret}
}
