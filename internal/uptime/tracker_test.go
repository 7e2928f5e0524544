package uptime

import (
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/omid3098/conduit-monitor/internal/models"
)

// memStore is an in-memory EventStore for tests.
type memStore struct {
	mu        sync.Mutex
	events    []models.UptimeEvent
	appendErr error
	readErr   error
	lastCalls int
}

func (s *memStore) AppendEvent(e models.UptimeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.events = append(s.events, e)
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].Timestamp < s.events[j].Timestamp })
	return nil
}

func (s *memStore) LastEvent(serverID string) (*models.UptimeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCalls++
	if s.readErr != nil {
		return nil, s.readErr
	}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ServerID == serverID {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *memStore) LastEventBefore(serverID string, ts int64) (*models.UptimeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].ServerID == serverID && s.events[i].Timestamp < ts {
			e := s.events[i]
			return &e, nil
		}
	}
	return nil, nil
}

func (s *memStore) EventsSince(serverID string, since int64) ([]models.UptimeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []models.UptimeEvent
	for _, e := range s.events {
		if e.ServerID == serverID && e.Timestamp >= since {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) count(serverID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.events {
		if e.ServerID == serverID {
			n++
		}
	}
	return n
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(store *memStore) (*Tracker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(testNow, 0)}
	return NewTracker(store, NewMemoryStateCache(), WithClock(clock.now)), clock
}

func TestRecordStatusResult_FirstObservationRecorded(t *testing.T) {
	store := &memStore{}
	tr, _ := newTestTracker(store)

	recorded, err := tr.RecordStatusResult("server-1", true)
	if err != nil {
		t.Fatalf("RecordStatusResult: %v", err)
	}
	if !recorded {
		t.Error("expected first observation to be recorded")
	}
	if store.events[0].EventType != models.EventOnline || store.events[0].Timestamp != testNow {
		t.Errorf("unexpected event %+v", store.events[0])
	}
}

func TestRecordStatusResult_Idempotent(t *testing.T) {
	store := &memStore{}
	tr, clock := newTestTracker(store)

	for i := 0; i < 2; i++ {
		if _, err := tr.RecordStatusResult("server-1", true); err != nil {
			t.Fatal(err)
		}
		clock.advance(15 * time.Second)
	}
	if n := store.count("server-1"); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestRecordStatusResult_Transitions(t *testing.T) {
	store := &memStore{}
	tr, clock := newTestTracker(store)

	for _, reachable := range []bool{true, false, false, true} {
		if _, err := tr.RecordStatusResult("server-1", reachable); err != nil {
			t.Fatal(err)
		}
		clock.advance(time.Minute)
	}

	want := []models.EventType{models.EventOnline, models.EventOffline, models.EventOnline}
	if len(store.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(store.events), len(want))
	}
	for i, w := range want {
		if store.events[i].EventType != w {
			t.Errorf("event %d = %s, want %s", i, store.events[i].EventType, w)
		}
	}
}

func TestRecordStatusResult_LoadsStateFromStore(t *testing.T) {
	store := &memStore{events: []models.UptimeEvent{ev(models.EventOnline, testNow-3600)}}
	tr, _ := newTestTracker(store)

	recorded, err := tr.RecordStatusResult("server-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if recorded {
		t.Error("expected no event when the stored state already matches")
	}
	if n := store.count("server-1"); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestRecordStatusResult_AppendFailureKeepsCache(t *testing.T) {
	store := &memStore{appendErr: errors.New("disk full")}
	tr, _ := newTestTracker(store)

	if _, err := tr.RecordStatusResult("server-1", true); err == nil {
		t.Fatal("expected append error")
	}

	store.appendErr = nil
	recorded, err := tr.RecordStatusResult("server-1", true)
	if err != nil {
		t.Fatal(err)
	}
	if !recorded {
		t.Error("expected the retry to record the event")
	}
}

func TestRecordStatusResult_ConcurrentPollsAppendOnce(t *testing.T) {
	store := &memStore{}
	tr, _ := newTestTracker(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.RecordStatusResult("server-1", false); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n := store.count("server-1"); n != 1 {
		t.Errorf("got %d events, want 1", n)
	}
}

func TestInitialize_OnlyReadsStoreOnce(t *testing.T) {
	store := &memStore{events: []models.UptimeEvent{ev(models.EventOnline, testNow-60)}}
	tr, _ := newTestTracker(store)

	if err := tr.Initialize("server-1"); err != nil {
		t.Fatal(err)
	}
	if err := tr.Initialize("server-1"); err != nil {
		t.Fatal(err)
	}
	if store.lastCalls != 1 {
		t.Errorf("LastEvent called %d times, want 1", store.lastCalls)
	}
}

func TestForget_DropsStateAndLock(t *testing.T) {
	store := &memStore{}
	cache := NewMemoryStateCache()
	tr := NewTracker(store, cache, WithClock(func() time.Time { return time.Unix(testNow, 0) }))

	if _, err := tr.RecordStatusResult("server-1", true); err != nil {
		t.Fatal(err)
	}
	if err := tr.Forget("server-1"); err != nil {
		t.Fatalf("Forget: %v", err)
	}

	if _, ok, _ := cache.Get("server-1"); ok {
		t.Error("state still cached after Forget")
	}
	tr.mu.Lock()
	n := len(tr.locks)
	tr.mu.Unlock()
	if n != 0 {
		t.Errorf("got %d server locks, want 0", n)
	}
}

func TestComputeUptime_UsesPriorEvent(t *testing.T) {
	store := &memStore{events: []models.UptimeEvent{
		ev(models.EventOnline, testSince-100),
		ev(models.EventOffline, testSince+testRange/2),
	}}
	tr, _ := newTestTracker(store)

	got, err := tr.ComputeUptime("server-1", testRange)
	if err != nil {
		t.Fatal(err)
	}
	if got.UptimePercent != 50 {
		t.Errorf("UptimePercent = %v, want 50", got.UptimePercent)
	}
	if len(got.DowntimeIncidents) != 1 || got.DowntimeIncidents[0].End != nil {
		t.Errorf("expected one open incident, got %+v", got.DowntimeIncidents)
	}
}

func TestComputeUptime_PropagatesReadErrors(t *testing.T) {
	store := &memStore{readErr: errors.New("database is locked")}
	tr, _ := newTestTracker(store)

	if _, err := tr.ComputeUptime("server-1", testRange); err == nil {
		t.Fatal("expected read error to propagate")
	}
}

func TestStoreStateCache_ReadsThrough(t *testing.T) {
	store := &memStore{}
	cache := NewStoreStateCache(store)

	if _, ok, err := cache.Get("server-1"); err != nil || ok {
		t.Fatalf("Get on empty store = ok=%v err=%v, want miss", ok, err)
	}
	store.events = append(store.events, ev(models.EventOffline, testNow))
	st, ok, err := cache.Get("server-1")
	if err != nil || !ok || st != models.EventOffline {
		t.Errorf("Get = (%s, %v, %v), want (offline, true, nil)", st, ok, err)
	}
}
