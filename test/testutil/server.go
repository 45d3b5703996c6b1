// Package testutil provides shared HTTP fixtures for tests that exercise
// resolution and downloads.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
)

// NewArchiveServer starts a server that serves fixture files from dir, the
// way a data archive serves resolved URLs. It is shut down with the test.
func NewArchiveServer(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	t.Cleanup(srv.Close)
	return srv
}

// NewSearchAPIServer starts a stub metadata API answering every
// filename-search request with body. When hits is non-nil it counts the
// requests that reached the server, which lets tests assert that a response
// cache short-circuited the network.
func NewSearchAPIServer(t *testing.T, domain, body string, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	wantPath := "/" + domain + "/data/filename-search"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			http.NotFound(w, r)
			return
		}
		if hits != nil {
			hits.Add(1)
		}
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// HostPort splits a server URL into the host and port an API client is
// constructed from.
func HostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parsing server URL %q: %v", rawURL, err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parsing server port %q: %v", u.Port(), err)
	}
	return u.Hostname(), port
}
