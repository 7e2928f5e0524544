package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/omid3098/conduit-monitor/internal/agent"
	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/omid3098/conduit-monitor/internal/services"
	"github.com/omid3098/conduit-monitor/internal/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// StatusPublisher receives encoded poll updates, typically the websocket hub.
type StatusPublisher interface {
	Publish(serverID string, message []byte)
}

// StatusSnapshot is the latest poll outcome for one server. Exactly one of
// Report and Err is set.
type StatusSnapshot struct {
	Report    *models.AgentStatusResponse
	Err       error
	CheckedAt time.Time
}

// PollerConfig tunes the poll loop.
type PollerConfig struct {
	Interval    time.Duration
	Concurrency int
	StaleAfter  time.Duration
}

// Poller periodically fetches every agent's status, stores metric snapshots
// and feeds availability results to the uptime tracker.
type Poller struct {
	serverSvc  services.ServerServiceProvider
	metricsSvc services.MetricsServiceProvider
	uptimeSvc  services.UptimeServiceProvider
	fetcher    agent.Fetcher
	publisher  StatusPublisher
	cfg        PollerConfig
	now        func() time.Time

	mu     sync.RWMutex
	latest map[string]StatusSnapshot

	ctx    context.Context
	cancel context.CancelFunc
	done   chan bool
}

// NewPoller creates a new Poller. publisher may be nil.
func NewPoller(serverSvc services.ServerServiceProvider, metricsSvc services.MetricsServiceProvider, uptimeSvc services.UptimeServiceProvider, fetcher agent.Fetcher, publisher StatusPublisher, cfg PollerConfig) *Poller {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Poller{
		serverSvc:  serverSvc,
		metricsSvc: metricsSvc,
		uptimeSvc:  uptimeSvc,
		fetcher:    fetcher,
		publisher:  publisher,
		cfg:        cfg,
		now:        time.Now,
		latest:     make(map[string]StatusSnapshot),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan bool),
	}
}

// Run starts the periodic polling. It blocks until Stop is called.
func (p *Poller) Run() {
	log.Info().Dur("interval", p.cfg.Interval).Int("concurrency", p.cfg.Concurrency).Msg("Starting status poller...")
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.warmUp()
	// Run once immediately on start
	p.PollAll(p.ctx)

	for {
		select {
		case <-p.done:
			log.Info().Msg("Stopping status poller.")
			return
		case <-ticker.C:
			p.PollAll(p.ctx)
		}
	}
}

// Stop cancels in-flight polls and halts the loop.
func (p *Poller) Stop() {
	p.cancel()
	p.done <- true
}

// PollAll polls every registered server once and waits for all of them, so
// results for one server are always recorded in poll order.
func (p *Poller) PollAll(ctx context.Context) {
	servers, err := p.serverSvc.GetAllServers()
	if err != nil {
		log.Error().Err(err).Msg("Poller: Failed to query servers")
		return
	}
	p.forgetMissing(servers)

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for _, srv := range servers {
		g.Go(func() error {
			p.pollServer(ctx, srv)
			return nil
		})
	}
	g.Wait()
}

// Status returns the latest poll outcome for a server.
func (p *Poller) Status(serverID string) (StatusSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.latest[serverID]
	return snap, ok
}

// IsStale reports whether an agent report is older than the stale threshold.
func (p *Poller) IsStale(report *models.AgentStatusResponse) bool {
	return p.now().Unix()-report.Timestamp > int64(p.cfg.StaleAfter/time.Second)
}

func (p *Poller) pollServer(ctx context.Context, srv models.Server) {
	ep := agent.Endpoint{Host: srv.Host, Port: srv.Port, Secret: srv.Secret}
	report, err := p.fetcher.FetchStatus(ctx, ep)
	checkedAt := p.now()

	if err != nil {
		if ctx.Err() != nil {
			// Shutting down; the agent's availability is unknown.
			return
		}
		log.Warn().Err(err).Str("server_id", srv.ID).Str("kind", agent.ErrorKind(err)).Msg("Poller: Agent unreachable")
		p.setStatus(srv.ID, StatusSnapshot{Err: err, CheckedAt: checkedAt})
		p.recordResult(srv.ID, false)
		p.publish(srv.ID, models.StatusError{Error: agent.ErrorKind(err), CheckedAt: checkedAt.Unix()})
		return
	}

	if err := p.serverSvc.RecordAgentSeen(srv.ID, report.ServerID, checkedAt); err != nil {
		log.Error().Err(err).Str("server_id", srv.ID).Msg("Poller: Failed to update last seen")
	}
	if err := p.metricsSvc.StoreSnapshot(srv.ID, *report); err != nil {
		log.Error().Err(err).Str("server_id", srv.ID).Msg("Poller: Failed to store metrics snapshot")
	}
	p.recordResult(srv.ID, true)
	p.setStatus(srv.ID, StatusSnapshot{Report: report, CheckedAt: checkedAt})
	p.publish(srv.ID, models.ServerStatus{AgentStatusResponse: report, Stale: p.IsStale(report)})
}

func (p *Poller) recordResult(serverID string, reachable bool) {
	changed, err := p.uptimeSvc.RecordStatusResult(serverID, reachable)
	if err != nil {
		log.Error().Err(err).Str("server_id", serverID).Msg("Poller: Failed to record availability")
		return
	}
	if changed {
		log.Info().Str("server_id", serverID).Bool("reachable", reachable).Msg("Poller: Availability changed")
	}
}

func (p *Poller) setStatus(serverID string, snap StatusSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest[serverID] = snap
}

// forgetMissing drops cached statuses of servers that were deleted.
func (p *Poller) forgetMissing(servers []models.Server) {
	keep := make(map[string]bool, len(servers))
	for _, srv := range servers {
		keep[srv.ID] = true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for id := range p.latest {
		if !keep[id] {
			delete(p.latest, id)
		}
	}
}

func (p *Poller) publish(serverID string, payload interface{}) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(serverID, websocket.NewServerStatusMessage(serverID, payload))
}

// warmUp loads the last known availability of every server before the first
// poll.
func (p *Poller) warmUp() {
	servers, err := p.serverSvc.GetAllServers()
	if err != nil {
		log.Error().Err(err).Msg("Poller: Failed to query servers")
		return
	}
	for _, srv := range servers {
		if err := p.uptimeSvc.Initialize(srv.ID); err != nil {
			log.Error().Err(err).Str("server_id", srv.ID).Msg("Poller: Failed to load availability state")
		}
	}
}
