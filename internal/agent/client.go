// Package agent talks to conduit agents over HTTP.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/omid3098/conduit-monitor/internal/models"
	"github.com/rs/zerolog/log"
)

// AuthHeader carries the shared secret on every status request.
const AuthHeader = "X-Conduit-Auth"

var (
	ErrAuthFailed = errors.New("auth_failed")
	ErrStartingUp = errors.New("starting_up")
	ErrTimeout    = errors.New("timeout")
	ErrOffline    = errors.New("offline")
	ErrAgent      = errors.New("agent_error")
)

// Fetcher is the subset of the client used by the poller.
type Fetcher interface {
	FetchStatus(ctx context.Context, ep Endpoint) (*models.AgentStatusResponse, error)
	FetchHealth(ctx context.Context, ep Endpoint) (*models.AgentHealth, error)
}

// Client polls agents for status and health.
type Client struct {
	http          *http.Client
	statusTimeout time.Duration
	healthTimeout time.Duration
}

// NewClient creates a client with per-request timeouts.
func NewClient(statusTimeout, healthTimeout time.Duration) *Client {
	return &Client{
		http:          &http.Client{},
		statusTimeout: statusTimeout,
		healthTimeout: healthTimeout,
	}
}

// FetchStatus retrieves the /status report of an agent. Failures are reported
// as one of the package's sentinel errors so callers can tell them apart.
func (c *Client) FetchStatus(ctx context.Context, ep Endpoint) (*models.AgentStatusResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL()+"/status", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set(AuthHeader, ep.Secret)
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrAuthFailed
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, ErrStartingUp
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%w: status %d", ErrAgent, resp.StatusCode)
	}

	// A mistyped field leaves its zero value; the rest of the report is kept.
	var status models.AgentStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: decoding status: %v", ErrAgent, err)
		}
		log.Warn().Err(err).Str("agent", ep.BaseURL()).Msg("Agent report has mistyped fields")
	}
	return &status, nil
}

// FetchHealth retrieves the unauthenticated /health document of an agent.
func (c *Client) FetchHealth(ctx context.Context, ep Endpoint) (*models.AgentHealth, error) {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL()+"/health", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrAgent, resp.StatusCode)
	}

	var health models.AgentHealth
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("%w: decoding health: %v", ErrAgent, err)
	}
	return &health, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return fmt.Errorf("%w: %v", ErrOffline, err)
}

// ErrorKind returns the short code of a fetch error ("timeout", "offline",
// ...), as exposed to API clients.
func ErrorKind(err error) string {
	for _, kind := range []error{ErrAuthFailed, ErrStartingUp, ErrTimeout, ErrOffline, ErrAgent} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return ErrOffline.Error()
}
