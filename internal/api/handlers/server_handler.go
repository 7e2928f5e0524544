package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/rs/zerolog/log"
)

// ServerHandler handles HTTP requests related to servers.
type ServerHandler struct {
	service services.ServerServiceProvider
	metrics services.MetricsServiceProvider
	uptime  services.UptimeServiceProvider
}

// NewServerHandler creates a new ServerHandler.
func NewServerHandler(service services.ServerServiceProvider, metrics services.MetricsServiceProvider, uptime services.UptimeServiceProvider) *ServerHandler {
	return &ServerHandler{service: service, metrics: metrics, uptime: uptime}
}

// GetAll handles the request to get all servers.
func (h *ServerHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	servers, err := h.service.GetAllServers()
	if err != nil {
		writeServiceError(w, err, "retrieve servers")
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

// Get handles the request to get a single server by its ID.
func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	server, err := h.service.GetServerByID(chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err, "retrieve server")
		return
	}
	writeJSON(w, http.StatusOK, server)
}

// Create registers a server from a conduit:// URI.
func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateServerRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	server, err := h.service.CreateServer(req.URI, req.Label)
	switch {
	case errors.Is(err, agent.ErrInvalidURI):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrDuplicateServer):
		writeError(w, http.StatusConflict, "A server with this host and port already exists")
		return
	case err != nil:
		writeServiceError(w, err, "create server")
		return
	}
	writeJSON(w, http.StatusCreated, server)
}

// Delete handles the request to delete a server.
func (h *ServerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteServer(id); err != nil {
		writeServiceError(w, err, "delete server")
		return
	}
	if err := h.uptime.Forget(id); err != nil {
		log.Error().Err(err).Str("server_id", id).Msg("Failed to release availability state")
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateTags replaces the tags of a server.
func (h *ServerHandler) UpdateTags(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTagsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	server, err := h.service.SetTags(chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		writeServiceError(w, err, "update tags")
		return
	}
	writeJSON(w, http.StatusOK, server)
}

// GetTags lists every tag in use.
func (h *ServerHandler) GetTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.GetAllTags()
	if err != nil {
		writeServiceError(w, err, "retrieve tags")
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

// GetHistory returns one server's raw metrics history.
func (h *ServerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.service.GetServerByID(id); err != nil {
		writeServiceError(w, err, "retrieve server")
		return
	}

	history, err := h.metrics.GetServerHistory(id, r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err, "retrieve history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}
