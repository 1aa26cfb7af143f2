// Package http wraps outbound HTTP for the backend clients: a pooled
// connection manager with a uniform TLS/timeout policy, and a small client
// with pluggable auth used by the Kibana and Periscope adapters.
package http

import (
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"
)

// Pool and timeout defaults shared by every issued client.
const (
	DefaultRequestTimeout  = 30 * time.Second
	DefaultConnectTimeout  = 5 * time.Second
	MaxConnections         = 200
	MaxKeepaliveConns      = 50
	defaultIdleConnTimeout = 30 * time.Second
)

// ClientOptions tune one issued client. Zero values fall back to the
// manager's configuration.
type ClientOptions struct {
	VerifyTLS       *bool
	Timeout         time.Duration
	FollowRedirects bool
}

// ConnectionManager produces pre-configured pooled HTTP clients. Pool
// limits are fixed at construction and shared by every client it issues;
// the clients themselves are cheap and scoped to one logical operation.
type ConnectionManager struct {
	verifyTLS      bool
	requestTimeout time.Duration

	transport         *http.Transport
	insecureTransport *http.Transport
}

// NewConnectionManager builds the manager. verifyTLS is the
// configuration-driven default (fail closed: pass true unless configuration
// explicitly disables verification).
func NewConnectionManager(verifyTLS bool, requestTimeout time.Duration) *ConnectionManager {
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}
	return &ConnectionManager{
		verifyTLS:         verifyTLS,
		requestTimeout:    requestTimeout,
		transport:         newTransport(false),
		insecureTransport: newTransport(true),
	}
}

func newTransport(insecure bool) *http.Transport {
	t := &http.Transport{
		MaxConnsPerHost:     MaxConnections,
		MaxIdleConns:        MaxConnections,
		MaxIdleConnsPerHost: MaxKeepaliveConns,
		IdleConnTimeout:     defaultIdleConnTimeout,
		DialContext: (&net.Dialer{
			Timeout:   DefaultConnectTimeout,
			KeepAlive: 15 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	if insecure {
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // operator opt-out for self-signed backends
	}
	return t
}

// Client hands out a client for one logical operation. The underlying
// connections come from the shared pool and return to it when the response
// body is closed.
func (m *ConnectionManager) Client(opts ClientOptions) *http.Client {
	verify := m.verifyTLS
	if opts.VerifyTLS != nil {
		verify = *opts.VerifyTLS
	}
	timeout := m.requestTimeout
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}

	transport := m.transport
	if !verify {
		transport = m.insecureTransport
	}

	c := &http.Client{Transport: transport, Timeout: timeout}
	if !opts.FollowRedirects {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return c
}

// CoerceBool interprets string configuration values as booleans so a
// non-empty "false" is not treated as truthy. Unrecognized values return
// the fallback.
func CoerceBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return fallback
	}
}
