package proxy

import (
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tls-strip-proxy/cache"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

func newTestProxy() (*HttpStripProxy, *cache.InMemoryCache) {
	clientCache := cache.NewInMemoryCache()
	p := NewHttpStripProxy(clientCache, zerolog.Nop(), 5*time.Second, false)
	return p, clientCache
}

// fakeTransport stands in for the TLS upstream: it records every request the
// proxy issues and answers with whatever respond returns.
type fakeTransport struct {
	lock     sync.Mutex
	requests []*http.Request
	respond  func(req *http.Request) (*http.Response, error)
}

func (ft *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ft.lock.Lock()
	ft.requests = append(ft.requests, req)
	ft.lock.Unlock()
	return ft.respond(req)
}

func (ft *fakeTransport) lastRequest() *http.Request {
	ft.lock.Lock()
	defer ft.lock.Unlock()
	if len(ft.requests) == 0 {
		return nil
	}
	return ft.requests[len(ft.requests)-1]
}
