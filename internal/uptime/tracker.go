package uptime

import (
	"fmt"
	"sync"
	"time"

	"github.com/omid3098/conduit-monitor/internal/models"
)

// EventStore is the persistence contract the tracker needs from the event log.
type EventStore interface {
	AppendEvent(ev models.UptimeEvent) error
	// LastEvent returns the most recent event for the server, or nil.
	LastEvent(serverID string) (*models.UptimeEvent, error)
	// LastEventBefore returns the most recent event strictly before ts, or nil.
	LastEventBefore(serverID string, ts int64) (*models.UptimeEvent, error)
	// EventsSince returns events with timestamp >= since, oldest first.
	EventsSince(serverID string, since int64) ([]models.UptimeEvent, error)
}

// Tracker records availability transitions and computes uptime from them.
type Tracker struct {
	store EventStore
	cache StateCache
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a Tracker over store, using cache for last known states.
func NewTracker(store EventStore, cache StateCache, opts ...Option) *Tracker {
	t := &Tracker{
		store: store,
		cache: cache,
		now:   time.Now,
		locks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// serverLock returns the mutex serializing state changes of one server.
func (t *Tracker) serverLock(serverID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[serverID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[serverID] = l
	}
	return l
}

// Initialize loads the last recorded state of serverID into the cache if it
// is not already known. Servers without any events stay uncached.
func (t *Tracker) Initialize(serverID string) error {
	l := t.serverLock(serverID)
	l.Lock()
	defer l.Unlock()
	_, _, err := t.lastState(serverID)
	return err
}

// lastState returns the cached state, falling back to the store on a miss.
// Callers must hold the server lock.
func (t *Tracker) lastState(serverID string) (models.EventType, bool, error) {
	state, ok, err := t.cache.Get(serverID)
	if err != nil {
		return "", false, fmt.Errorf("reading state cache: %w", err)
	}
	if ok {
		return state, true, nil
	}

	ev, err := t.store.LastEvent(serverID)
	if err != nil {
		return "", false, fmt.Errorf("loading last uptime event: %w", err)
	}
	if ev == nil {
		return "", false, nil
	}
	if err := t.cache.Set(serverID, ev.EventType); err != nil {
		return "", false, fmt.Errorf("writing state cache: %w", err)
	}
	return ev.EventType, true, nil
}

// RecordStatusResult records the outcome of a poll. An event is appended only
// when the state differs from the last recorded one; the returned bool tells
// whether that happened. Calls for one server must arrive in poll order.
func (t *Tracker) RecordStatusResult(serverID string, reachable bool) (bool, error) {
	newState := models.EventOffline
	if reachable {
		newState = models.EventOnline
	}

	l := t.serverLock(serverID)
	l.Lock()
	defer l.Unlock()

	prev, known, err := t.lastState(serverID)
	if err != nil {
		return false, err
	}
	if known && prev == newState {
		return false, nil
	}

	ev := models.UptimeEvent{
		ServerID:  serverID,
		EventType: newState,
		Timestamp: t.now().Unix(),
	}
	if err := t.store.AppendEvent(ev); err != nil {
		return false, fmt.Errorf("appending uptime event: %w", err)
	}
	if err := t.cache.Set(serverID, newState); err != nil {
		return true, fmt.Errorf("writing state cache: %w", err)
	}
	return true, nil
}

// Forget drops the cached state and lock of a deleted server.
func (t *Tracker) Forget(serverID string) error {
	l := t.serverLock(serverID)
	l.Lock()
	defer l.Unlock()

	if err := t.cache.Delete(serverID); err != nil {
		return fmt.Errorf("clearing state cache: %w", err)
	}
	t.mu.Lock()
	delete(t.locks, serverID)
	t.mu.Unlock()
	return nil
}

// ComputeUptime rebuilds availability for the last rangeSeconds seconds.
func (t *Tracker) ComputeUptime(serverID string, rangeSeconds int64) (models.UptimeResult, error) {
	now := t.now().Unix()
	since := now - rangeSeconds

	priorEvent, err := t.store.LastEventBefore(serverID, since)
	if err != nil {
		return models.UptimeResult{}, fmt.Errorf("loading prior uptime event: %w", err)
	}
	events, err := t.store.EventsSince(serverID, since)
	if err != nil {
		return models.UptimeResult{}, fmt.Errorf("loading uptime events: %w", err)
	}

	var prior *models.EventType
	if priorEvent != nil {
		state := priorEvent.EventType
		prior = &state
	}
	return Reconstruct(prior, events, since, now), nil
}
