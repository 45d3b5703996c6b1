// Package resolver provides the HTTP client for the scidd metadata API.
// Domain resolvers are built on top of it; the core packages only see the
// scidd.Resolver protocol.
package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/glorpus-work/scidd/pkg/errors"
)

// Environment variables overriding the default metadata API endpoint.
const (
	EnvAPIHost = "SCIDD_API_HOST"
	EnvAPIPort = "SCIDD_API_PORT"
)

// Defaults for the metadata API endpoint.
const (
	DefaultHost    = "api.trillianverse.org"
	DefaultPort    = 443
	DefaultTimeout = 30 * time.Second
)

// APIClient talks to the scidd metadata API over HTTP(S).
type APIClient struct {
	scheme    string
	host      string
	port      int
	client    *http.Client
	userAgent string
}

// NewAPIClient creates a client for the metadata API at host:port. The scheme
// is https except for localhost, which is served over plain http during
// development.
func NewAPIClient(host string, port int, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	scheme := "https"
	if host == "localhost" || host == "127.0.0.1" {
		scheme = "http"
	}
	return &APIClient{
		scheme:    scheme,
		host:      host,
		port:      port,
		client:    &http.Client{Timeout: timeout},
		userAgent: "scidd/1.0",
	}
}

// NewDefaultAPIClient creates a client for the default endpoint, honoring the
// SCIDD_API_HOST and SCIDD_API_PORT environment variables.
func NewDefaultAPIClient() *APIClient {
	host, port := EndpointFromEnv(EnvAPIHost, EnvAPIPort, DefaultHost, DefaultPort)
	return NewAPIClient(host, port, DefaultTimeout)
}

// EndpointFromEnv resolves a host/port pair from the given environment
// variables, falling back to the provided defaults. A malformed port value is
// ignored in favor of the default.
func EndpointFromEnv(hostVar, portVar, defaultHost string, defaultPort int) (string, int) {
	host := defaultHost
	if v := os.Getenv(hostVar); v != "" {
		host = v
	}
	port := defaultPort
	if v := os.Getenv(portVar); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}
	return host, port
}

// BaseURL returns the base URL for the API without a path, e.g.
// "https://api.trillianverse.org". Default ports are elided.
func (c *APIClient) BaseURL() string {
	if (c.scheme == "https" && c.port == 443) || (c.scheme == "http" && c.port == 80) || c.port == 0 {
		return fmt.Sprintf("%s://%s", c.scheme, c.host)
	}
	return fmt.Sprintf("%s://%s:%d", c.scheme, c.host, c.port)
}

// Get performs a GET call against the API and returns the raw response body.
// Transport failures surface as ErrConnection so callers can apply their own
// retry policy; a 5xx response surfaces as ErrServer carrying any diagnostic
// message the API included in its error payload.
func (c *APIClient) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("a path must be provided for an API call")
	}

	reqURL := c.BaseURL() + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrConnection, "GET %s: %v", reqURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		if msg := extractErrorMessage(body); msg != "" {
			return nil, errors.Wrapf(errors.ErrServer, "HTTP %d from %s: %s", resp.StatusCode, c.host, msg)
		}
		return nil, errors.Wrapf(errors.ErrServer, "HTTP %d from %s", resp.StatusCode, c.host)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, reqURL)
	}

	return body, nil
}

// extractErrorMessage pulls errors[0].message out of an API error payload.
// Anything that doesn't match that shape yields "".
func extractErrorMessage(body []byte) string {
	var payload struct {
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Errors) == 0 {
		return ""
	}
	return payload.Errors[0].Message
}
