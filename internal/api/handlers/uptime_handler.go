package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omid3098/conduit-monitor/internal/services"
)

// UptimeHandler serves availability reports.
type UptimeHandler struct {
	service services.UptimeServiceProvider
}

// NewUptimeHandler creates a new UptimeHandler.
func NewUptimeHandler(service services.UptimeServiceProvider) *UptimeHandler {
	return &UptimeHandler{service: service}
}

// GetFleet handles GET /uptime?range=.
func (h *UptimeHandler) GetFleet(w http.ResponseWriter, r *http.Request) {
	uptime, err := h.service.GetFleetUptime(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err, "compute fleet uptime")
		return
	}
	writeJSON(w, http.StatusOK, uptime)
}

// GetServer handles GET /servers/{id}/uptime?range=.
func (h *UptimeHandler) GetServer(w http.ResponseWriter, r *http.Request) {
	uptime, err := h.service.GetServerUptime(chi.URLParam(r, "id"), r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err, "compute uptime")
		return
	}
	writeJSON(w, http.StatusOK, uptime)
}
