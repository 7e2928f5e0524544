package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"
)

func endpointFor(t *testing.T, srv *httptest.Server, secret string) Endpoint {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())
	return Endpoint{Host: u.Hostname(), Port: port, Secret: secret}
}

func TestFetchStatus_SendsSecretAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" {
			t.Errorf("expected path /status, got %s", r.URL.Path)
		}
		if got := r.Header.Get(AuthHeader); got != "s3cret" {
			t.Errorf("auth header = %q, want s3cret", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"server_id":"agent-1","timestamp":1000,"total_containers":2,"system":null,"containers":[{"id":"c1","cpu_percent":5,"memory_mb":64}]}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)
	status, err := c.FetchStatus(context.Background(), endpointFor(t, srv, "s3cret"))
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if status.ServerID != "agent-1" || status.Timestamp != 1000 || status.TotalContainers != 2 {
		t.Errorf("unexpected status %+v", status)
	}
	if status.System != nil {
		t.Error("expected nil system for null JSON")
	}
	if len(status.Containers) != 1 {
		t.Errorf("got %d containers, want 1", len(status.Containers))
	}
}

func TestFetchStatus_KeepsReportWithMistypedFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"server_id":"agent-1","timestamp":1000,"total_containers":1,` +
			`"system":{"cpu_percent":12.5},` +
			`"connections":{"total":4,"unique_ips":3,"states":{"ESTABLISHED":2.5}},` +
			`"clients_by_country":[{"country":"DE","connections":3.0},{"country":"US","connections":"7"}],` +
			`"containers":[{"id":"c1","uptime":3600,"cpu_percent":5,"app_metrics":"pending"}]}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)
	status, err := c.FetchStatus(context.Background(), endpointFor(t, srv, "x"))
	if err != nil {
		t.Fatalf("FetchStatus: %v", err)
	}
	if status.ServerID != "agent-1" || status.System == nil || status.System.CPUPercent != 12.5 {
		t.Errorf("unexpected status %+v", status)
	}
	if status.Connections == nil || status.Connections.Total != 4 {
		t.Errorf("connections = %+v, want total 4", status.Connections)
	}
	if len(status.Containers) != 1 {
		t.Fatalf("got %d containers, want 1", len(status.Containers))
	}
	if got := status.Containers[0]; got.ID != "c1" || got.CPUPercent != 5 || got.Uptime != "" {
		t.Errorf("container = %+v", got)
	}
	if len(status.ClientsByCountry) != 2 {
		t.Fatalf("got %d countries, want 2", len(status.ClientsByCountry))
	}
	if got := status.ClientsByCountry[0]; got.Country != "DE" || got.Connections != 3 {
		t.Errorf("country[0] = %+v, want DE/3", got)
	}
	if got := status.ClientsByCountry[1]; got.Country != "US" || got.Connections != 7 {
		t.Errorf("country[1] = %+v, want US/7", got)
	}
}

func TestFetchStatus_RejectsInvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"server_id":`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)
	if _, err := c.FetchStatus(context.Background(), endpointFor(t, srv, "x")); !errors.Is(err, ErrAgent) {
		t.Errorf("err = %v, want ErrAgent", err)
	}
}

func TestFetchStatus_ErrorKinds(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusServiceUnavailable, ErrStartingUp},
		{http.StatusInternalServerError, ErrAgent},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.code)
		}))
		c := NewClient(time.Second, time.Second)
		_, err := c.FetchStatus(context.Background(), endpointFor(t, srv, "x"))
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: err = %v, want %v", tt.code, err, tt.want)
		}
		srv.Close()
	}
}

func TestFetchStatus_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(50*time.Millisecond, time.Second)
	_, err := c.FetchStatus(context.Background(), endpointFor(t, srv, "x"))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestFetchStatus_Offline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	ep := endpointFor(t, srv, "x")
	srv.Close()

	c := NewClient(time.Second, time.Second)
	if _, err := c.FetchStatus(context.Background(), ep); !errors.Is(err, ErrOffline) {
		t.Errorf("err = %v, want ErrOffline", err)
	}
}

func TestFetchHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := NewClient(time.Second, time.Second)
	h, err := c.FetchHealth(context.Background(), endpointFor(t, srv, ""))
	if err != nil {
		t.Fatalf("FetchHealth: %v", err)
	}
	if h.Status != "ok" {
		t.Errorf("Status = %q, want ok", h.Status)
	}
}

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{ErrAuthFailed, "auth_failed"},
		{fmt.Errorf("%w: status 500", ErrAgent), "agent_error"},
		{fmt.Errorf("%w: dial tcp", ErrOffline), "offline"},
		{ErrTimeout, "timeout"},
		{errors.New("something else"), "offline"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
