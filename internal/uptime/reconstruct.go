// Package uptime tracks server availability as a log of state transitions and
// rebuilds uptime percentages and downtime incidents from that log.
package uptime

import "github.com/omid3098/conduit-monitor/internal/models"

// Reconstruct folds an ordered event stream into an UptimeResult for the
// window [since, now].
//
// prior is the last event type recorded before since, or nil if none exists,
// in which case the server counts as offline until its first event. events
// must be sorted by ascending timestamp and lie within the window.
func Reconstruct(prior *models.EventType, events []models.UptimeEvent, since, now int64) models.UptimeResult {
	state := models.EventOffline
	if prior != nil {
		state = *prior
	}

	var (
		onlineTime    int64
		last          = since
		incidentStart *int64
		incidents     = make([]models.DowntimeIncident, 0)
	)
	if state == models.EventOffline {
		start := since
		incidentStart = &start
	}

	for _, ev := range events {
		if state == models.EventOnline {
			onlineTime += ev.Timestamp - last
		}

		switch {
		case ev.EventType == models.EventOffline && state == models.EventOnline:
			start := ev.Timestamp
			incidentStart = &start
		case ev.EventType == models.EventOnline && state == models.EventOffline && incidentStart != nil:
			end := ev.Timestamp
			incidents = append(incidents, models.DowntimeIncident{
				Start:    *incidentStart,
				End:      &end,
				Duration: end - *incidentStart,
			})
			incidentStart = nil
		}

		state = ev.EventType
		last = ev.Timestamp
	}

	if state == models.EventOnline {
		onlineTime += now - last
	} else if incidentStart != nil {
		incidents = append(incidents, models.DowntimeIncident{
			Start:    *incidentStart,
			End:      nil,
			Duration: now - *incidentStart,
		})
	}

	var percent float64
	if total := now - since; total > 0 {
		percent = float64(onlineTime) / float64(total) * 100
	}

	return models.UptimeResult{UptimePercent: percent, DowntimeIncidents: incidents}
}

// FleetPercent is the arithmetic mean of per-server uptime percentages.
// An empty fleet reports 100.
func FleetPercent(percents []float64) float64 {
	if len(percents) == 0 {
		return 100
	}
	var sum float64
	for _, p := range percents {
		sum += p
	}
	return sum / float64(len(percents))
}
