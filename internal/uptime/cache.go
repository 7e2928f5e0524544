package uptime

import (
	"sync"

	"github.com/omid3098/conduit-monitor/internal/models"
)

// StateCache remembers the last recorded availability state per server. It is
// only used to decide whether a new poll result is a transition worth
// persisting.
type StateCache interface {
	// Get returns the cached state and whether one is known.
	Get(serverID string) (models.EventType, bool, error)
	// Set records state as the latest known state of serverID.
	Set(serverID string, state models.EventType) error
	// Delete forgets serverID.
	Delete(serverID string) error
}

// MemoryStateCache is a process-local StateCache. It is only correct while a
// single process records status results for a given server.
type MemoryStateCache struct {
	mu     sync.RWMutex
	states map[string]models.EventType
}

// NewMemoryStateCache creates an empty in-memory cache.
func NewMemoryStateCache() *MemoryStateCache {
	return &MemoryStateCache{states: make(map[string]models.EventType)}
}

func (c *MemoryStateCache) Get(serverID string) (models.EventType, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.states[serverID]
	return state, ok, nil
}

func (c *MemoryStateCache) Set(serverID string, state models.EventType) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[serverID] = state
	return nil
}

func (c *MemoryStateCache) Delete(serverID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, serverID)
	return nil
}

// StoreStateCache answers every lookup from the event store, so several
// monitor processes sharing one database agree on the last state. Set is a
// no-op because the appended event is the state.
type StoreStateCache struct {
	store EventStore
}

// NewStoreStateCache creates a cache that reads through to store.
func NewStoreStateCache(store EventStore) *StoreStateCache {
	return &StoreStateCache{store: store}
}

func (c *StoreStateCache) Get(serverID string) (models.EventType, bool, error) {
	ev, err := c.store.LastEvent(serverID)
	if err != nil {
		return "", false, err
	}
	if ev == nil {
		return "", false, nil
	}
	return ev.EventType, true, nil
}

func (c *StoreStateCache) Set(string, models.EventType) error { return nil }

func (c *StoreStateCache) Delete(string) error { return nil }
