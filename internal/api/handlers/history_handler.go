package handlers

import (
	"net/http"

	"github.com/omid3098/conduit-monitor/internal/services"
)

// HistoryHandler serves the fleet-wide metrics history.
type HistoryHandler struct {
	service services.MetricsServiceProvider
}

// NewHistoryHandler creates a new HistoryHandler.
func NewHistoryHandler(service services.MetricsServiceProvider) *HistoryHandler {
	return &HistoryHandler{service: service}
}

// Get handles GET /history?range=.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetAggregatedHistory(r.URL.Query().Get("range"))
	if err != nil {
		writeServiceError(w, err, "retrieve history")
		return
	}
	writeJSON(w, http.StatusOK, history)
}
