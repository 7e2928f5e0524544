package agent

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const uriScheme = "conduit://"

// ErrInvalidURI is returned for malformed conduit:// URIs.
var ErrInvalidURI = errors.New("invalid conduit URI")

// Endpoint is the address and shared secret of one agent.
type Endpoint struct {
	Host   string
	Port   int
	Secret string
}

// BaseURL returns the agent's HTTP base URL.
func (e Endpoint) BaseURL() string {
	return "http://" + netJoin(e.Host, e.Port)
}

func netJoin(host string, port int) string {
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return host + ":" + strconv.Itoa(port)
}

// ParseURI parses a conduit://<secret>@<host>:<port> URI.
func ParseURI(uri string) (Endpoint, error) {
	if !strings.HasPrefix(uri, uriScheme) {
		return Endpoint{}, fmt.Errorf("%w: must start with %s", ErrInvalidURI, uriScheme)
	}

	u, err := url.Parse("http://" + strings.TrimPrefix(uri, uriScheme))
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}

	secret := u.User.Username()
	if secret == "" {
		return Endpoint{}, fmt.Errorf("%w: missing secret", ErrInvalidURI)
	}
	host := u.Hostname()
	if host == "" {
		return Endpoint{}, fmt.Errorf("%w: missing host", ErrInvalidURI)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("%w: missing or invalid port", ErrInvalidURI)
	}

	return Endpoint{Host: host, Port: port, Secret: secret}, nil
}
