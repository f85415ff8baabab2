package proxy

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpstreamRequestIsSecure(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("GET", "http://site.test/login?next=/home", nil)
	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "https", out.URL.Scheme)
	assert.Equal(t, "site.test", out.URL.Host)
	assert.Equal(t, "/login", out.URL.Path)
	assert.Equal(t, "next=/home", out.URL.RawQuery)
}

func TestUpstreamRequestSecureOnCacheHit(t *testing.T) {
	p, clientCache := newTestProxy()
	clientCache.AddURL("10.0.0.1", "site.test", "/login")

	req := httptest.NewRequest("GET", "http://site.test/login", nil)
	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "https", out.URL.Scheme)
}

func TestUpstreamRequestStripsHeaders(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("GET", "http://site.test/", nil)
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("User-Agent", "test-agent")

	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Empty(t, out.Header.Get("Upgrade-Insecure-Requests"))
	assert.Empty(t, out.Header.Get("Accept-Encoding"))
	assert.Empty(t, out.Header.Get("Connection"))
	assert.Empty(t, out.Header.Values("Host"))
	assert.Equal(t, "test-agent", out.Header.Get("User-Agent"))
}

func TestUpstreamRequestCookieFiltering(t *testing.T) {
	p, clientCache := newTestProxy()
	clientCache.AddCookie("10.0.0.1", "site.test", "session")

	req := httptest.NewRequest("GET", "http://site.test/", nil)
	req.Header.Set("Cookie", "session=abc; other=xyz")

	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "session=abc", out.Header.Get("Cookie"))
}

func TestUpstreamRequestDropsAllCookiesWhenNoneKnown(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("GET", "http://site.test/", nil)
	req.Header.Set("Cookie", "session=abc; other=xyz")

	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Empty(t, out.Header.Get("Cookie"))
}

func TestUpstreamRequestQueryParamReupgrade(t *testing.T) {
	p, clientCache := newTestProxy()
	clientCache.AddURL("10.0.0.1", "sso.test", "/auth")

	req := httptest.NewRequest("GET", "http://site.test/login?redirect=http://sso.test/auth", nil)
	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "https://sso.test/auth", out.URL.Query().Get("redirect"))
}

func TestUpstreamRequestQueryParamLeftWhenUnknown(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("GET", "http://site.test/login?redirect=http://sso.test/auth", nil)
	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	// no evidence the target was stripped: the value goes through untouched
	assert.Equal(t, "redirect=http://sso.test/auth", out.URL.RawQuery)
}

func TestUpstreamRequestOriginReupgrade(t *testing.T) {
	p, clientCache := newTestProxy()
	clientCache.AddURL("10.0.0.1", "site.test", "/form")

	req := httptest.NewRequest("POST", "http://site.test/submit", strings.NewReader("a=b"))
	req.Header.Set("Origin", "http://site.test")

	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "https://site.test", out.Header.Get("Origin"))
}

func TestUpstreamRequestOriginLeftForUnknownHost(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("POST", "http://site.test/submit", strings.NewReader("a=b"))
	req.Header.Set("Origin", "http://elsewhere.test")

	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, "http://elsewhere.test", out.Header.Get("Origin"))
}

func TestUpstreamRequestForwardsBody(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("POST", "http://site.test/submit", strings.NewReader("a=b&c=d"))
	out, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")

	require.NoError(t, err)
	require.NotNil(t, out.Body)
	body, err := io.ReadAll(out.Body)
	require.NoError(t, err)
	assert.Equal(t, "a=b&c=d", string(body))
}

func TestUpstreamRequestWithoutHost(t *testing.T) {
	p, _ := newTestProxy()

	req := httptest.NewRequest("GET", "/nohost", nil)
	req.Host = ""

	_, err := p.upstreamRequest(context.Background(), req, "10.0.0.1")
	assert.Error(t, err)
}
