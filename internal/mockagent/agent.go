// Package mockagent implements a stand-in conduit agent for local testing of
// the monitor.
package mockagent

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/rs/zerolog/log"
)

var countries = []string{"US", "DE", "IR", "GB", "FR", "NL", "CA", "TR"}

// Options configures a mock agent.
type Options struct {
	Secret     string
	ServerID   string
	Containers int
	// Warmup is how long /status answers 503 after start.
	Warmup time.Duration
}

// Agent serves /status and /health like a real conduit agent.
type Agent struct {
	opts    Options
	sampler Sampler
	started time.Time
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Agent reporting host figures from sampler.
func New(opts Options, sampler Sampler) *Agent {
	if opts.Containers < 0 {
		opts.Containers = 0
	}
	return &Agent{
		opts:    opts,
		sampler: sampler,
		started: time.Now(),
		now:     time.Now,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handler returns the agent's HTTP routes.
func (a *Agent) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", a.health)
	r.Get("/status", a.status)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})
	return r
}

func (a *Agent) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.AgentHealth{Status: "ok"})
}

func (a *Agent) status(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(agent.AuthHeader) != a.opts.Secret {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if a.now().Sub(a.started) < a.opts.Warmup {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "starting up"})
		return
	}

	sys, err := a.sampler.Sample(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to sample host metrics")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "sampling failed"})
		return
	}
	writeJSON(w, http.StatusOK, a.Report(sys))
}

// Report builds a status report around sys with synthetic containers and
// client breakdowns.
func (a *Agent) Report(sys models.AgentSystem) models.AgentStatusResponse {
	a.mu.Lock()
	defer a.mu.Unlock()

	report := models.AgentStatusResponse{
		ServerID:         a.opts.ServerID,
		Timestamp:        a.now().Unix(),
		TotalContainers:  a.opts.Containers,
		System:           &sys,
		Containers:       make([]models.AgentContainer, 0, a.opts.Containers),
		ClientsByCountry: []models.CountryClients{},
	}

	total := 0
	for i := 0; i < a.opts.Containers; i++ {
		c := models.AgentContainer{
			ID:         fmt.Sprintf("%012x", a.rng.Int63()&0xffffffffffff),
			Name:       fmt.Sprintf("conduit-%d", i+1),
			Status:     "running",
			CPUPercent: 2 + a.rng.Float64()*40,
			MemoryMB:   64 + a.rng.Float64()*192,
			Uptime:     a.now().Sub(a.started).Truncate(time.Second).String(),
		}
		// The last container's metrics are still pending.
		if i < a.opts.Containers-1 || a.opts.Containers == 1 {
			conns := 20 + a.rng.Intn(150)
			total += conns
			c.AppMetrics = &models.AgentAppMetrics{
				Connections: conns,
				TrafficIn:   a.rng.Int63n(1 << 30),
				TrafficOut:  a.rng.Int63n(1 << 31),
			}
		}
		report.Containers = append(report.Containers, c)
	}

	remaining := total
	for _, code := range countries {
		if remaining == 0 {
			break
		}
		n := 1 + a.rng.Intn(remaining)
		report.ClientsByCountry = append(report.ClientsByCountry, models.CountryClients{Country: code, Connections: n})
		remaining -= n
	}

	report.ConnectedClients = total
	report.Connections = &models.AgentConnections{
		Total:     float64(total),
		UniqueIPs: float64(total - total/5),
		States:    map[string]int{"ESTABLISHED": total},
	}
	return report
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
