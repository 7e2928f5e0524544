package uptime

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/omid3098/conduit-monitor/internal/models"
)

const (
	testNow   = int64(1749988800) // 2025-06-15T12:00:00Z
	testRange = int64(86400)
	testSince = testNow - testRange
)

func state(s models.EventType) *models.EventType { return &s }

func ev(t models.EventType, ts int64) models.UptimeEvent {
	return models.UptimeEvent{ServerID: "server-1", EventType: t, Timestamp: ts}
}

func i64(v int64) *int64 { return &v }

func TestReconstruct_AlwaysOfflineNoEvents(t *testing.T) {
	got := Reconstruct(nil, nil, testSince, testNow)

	if got.UptimePercent != 0 {
		t.Errorf("UptimePercent = %v, want 0", got.UptimePercent)
	}
	want := []models.DowntimeIncident{{Start: testSince, End: nil, Duration: testRange}}
	if diff := cmp.Diff(want, got.DowntimeIncidents); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstruct_AlwaysOnline(t *testing.T) {
	got := Reconstruct(state(models.EventOnline), nil, testSince, testNow)

	if got.UptimePercent != 100 {
		t.Errorf("UptimePercent = %v, want 100", got.UptimePercent)
	}
	if len(got.DowntimeIncidents) != 0 {
		t.Errorf("expected no incidents, got %d", len(got.DowntimeIncidents))
	}
}

func TestReconstruct_GoesOfflineAtMidpoint(t *testing.T) {
	half := testSince + testRange/2
	got := Reconstruct(state(models.EventOnline), []models.UptimeEvent{
		ev(models.EventOffline, half),
	}, testSince, testNow)

	if math.Abs(got.UptimePercent-50) > 0.01 {
		t.Errorf("UptimePercent = %v, want ~50", got.UptimePercent)
	}
	want := []models.DowntimeIncident{{Start: half, End: nil, Duration: testNow - half}}
	if diff := cmp.Diff(want, got.DowntimeIncidents); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstruct_RecoversAtMidpoint(t *testing.T) {
	half := testSince + testRange/2
	got := Reconstruct(state(models.EventOffline), []models.UptimeEvent{
		ev(models.EventOnline, half),
	}, testSince, testNow)

	if math.Abs(got.UptimePercent-50) > 0.01 {
		t.Errorf("UptimePercent = %v, want ~50", got.UptimePercent)
	}
	want := []models.DowntimeIncident{{Start: testSince, End: i64(half), Duration: half - testSince}}
	if diff := cmp.Diff(want, got.DowntimeIncidents); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstruct_UnknownServerFirstComesOnline(t *testing.T) {
	half := testSince + testRange/2
	got := Reconstruct(nil, []models.UptimeEvent{
		ev(models.EventOnline, half),
	}, testSince, testNow)

	if math.Abs(got.UptimePercent-50) > 0.01 {
		t.Errorf("UptimePercent = %v, want ~50", got.UptimePercent)
	}
	if len(got.DowntimeIncidents) != 1 || got.DowntimeIncidents[0].End == nil {
		t.Fatalf("expected one closed incident, got %+v", got.DowntimeIncidents)
	}
}

func TestReconstruct_OfflineThenOnline(t *testing.T) {
	off := testSince + testRange/4
	on := testSince + testRange*3/4
	got := Reconstruct(state(models.EventOnline), []models.UptimeEvent{
		ev(models.EventOffline, off),
		ev(models.EventOnline, on),
	}, testSince, testNow)

	if math.Abs(got.UptimePercent-50) > 0.01 {
		t.Errorf("UptimePercent = %v, want ~50", got.UptimePercent)
	}
	want := []models.DowntimeIncident{{Start: off, End: i64(on), Duration: on - off}}
	if diff := cmp.Diff(want, got.DowntimeIncidents); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
}

func TestReconstruct_MultipleIncidentsInOrder(t *testing.T) {
	got := Reconstruct(state(models.EventOnline), []models.UptimeEvent{
		ev(models.EventOffline, testSince+1000),
		ev(models.EventOnline, testSince+2000),
		ev(models.EventOffline, testSince+3000),
		ev(models.EventOnline, testSince+4000),
	}, testSince, testNow)

	want := []models.DowntimeIncident{
		{Start: testSince + 1000, End: i64(testSince + 2000), Duration: 1000},
		{Start: testSince + 3000, End: i64(testSince + 4000), Duration: 1000},
	}
	if diff := cmp.Diff(want, got.DowntimeIncidents); diff != "" {
		t.Errorf("incidents mismatch (-want +got):\n%s", diff)
	}
	wantPct := float64(testRange-2000) / float64(testRange) * 100
	if math.Abs(got.UptimePercent-wantPct) > 1e-9 {
		t.Errorf("UptimePercent = %v, want %v", got.UptimePercent, wantPct)
	}
}

func TestReconstruct_RepeatedEventsAreHarmless(t *testing.T) {
	got := Reconstruct(state(models.EventOnline), []models.UptimeEvent{
		ev(models.EventOnline, testSince+10),
		ev(models.EventOnline, testSince+20),
	}, testSince, testNow)

	if got.UptimePercent != 100 {
		t.Errorf("UptimePercent = %v, want 100", got.UptimePercent)
	}
	if len(got.DowntimeIncidents) != 0 {
		t.Errorf("expected no incidents, got %d", len(got.DowntimeIncidents))
	}
}

func TestReconstruct_ZeroLengthWindow(t *testing.T) {
	got := Reconstruct(state(models.EventOnline), nil, testNow, testNow)
	if got.UptimePercent != 0 {
		t.Errorf("UptimePercent = %v, want 0", got.UptimePercent)
	}
}

func TestReconstruct_PercentWithinBounds(t *testing.T) {
	events := []models.UptimeEvent{
		ev(models.EventOnline, testSince+1),
		ev(models.EventOffline, testSince+500),
		ev(models.EventOnline, testSince+900),
		ev(models.EventOffline, testNow-1),
	}
	for _, prior := range []*models.EventType{nil, state(models.EventOnline), state(models.EventOffline)} {
		got := Reconstruct(prior, events, testSince, testNow)
		if got.UptimePercent < 0 || got.UptimePercent > 100 {
			t.Errorf("UptimePercent = %v, want within [0,100]", got.UptimePercent)
		}
	}
}

func TestFleetPercent(t *testing.T) {
	if got := FleetPercent(nil); got != 100 {
		t.Errorf("FleetPercent(nil) = %v, want 100", got)
	}
	if got := FleetPercent([]float64{100, 50, 0}); got != 50 {
		t.Errorf("FleetPercent = %v, want 50", got)
	}
}

func TestResolveRange(t *testing.T) {
	tests := []struct {
		in        string
		wantLabel string
		wantSecs  int64
	}{
		{"24h", "24h", 86400},
		{"7d", "7d", 604800},
		{"30d", "30d", 2592000},
		{"", "24h", 86400},
		{"1y", "1y", 86400},
	}
	for _, tt := range tests {
		label, secs := ResolveRange(tt.in)
		if label != tt.wantLabel || secs != tt.wantSecs {
			t.Errorf("ResolveRange(%q) = (%q, %d), want (%q, %d)", tt.in, label, secs, tt.wantLabel, tt.wantSecs)
		}
	}
}
