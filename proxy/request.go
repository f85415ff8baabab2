package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"tls-strip-proxy/cache"
)

// Headers never forwarded upstream. Host is supplied by the outbound call
// itself, Cookie is re-added after filtering, and Accept-Encoding is left to
// the transport so compressed bodies arrive transparently decoded.
var requestHeaderBlacklist = []string{
	"Upgrade-Insecure-Requests",
	"Host",
	"Cookie",
	"Accept-Encoding",
	"Connection",
	"Proxy-Connection",
}

func blacklistedRequestHeader(name string) bool {
	for _, blacklisted := range requestHeaderBlacklist {
		if strings.EqualFold(name, blacklisted) {
			return true
		}
	}
	return false
}

// upstreamRequest builds the TLS-side replay of an inbound plaintext request.
// Malformed individual fields are skipped, never fatal.
func (p *HttpStripProxy) upstreamRequest(ctx context.Context, req *http.Request, client string) (*http.Request, error) {
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	if host == "" {
		return nil, errors.New("request carries no host")
	}

	rel := relURL(req.URL)
	// The upstream leg is always TLS: the proxy exists to fetch secure
	// content and re-serve it in plaintext. A cache hit only confirms this
	// path was seen stripped earlier.
	knownStripped := p.Cache.HasURL(client, host, rel)
	p.Logger.Debug().
		Str("client", client).
		Str("host", host).
		Str("rel", rel).
		Bool("cached", knownStripped).
		Msg("replaying request upstream")

	u := *req.URL
	u.Scheme = "https"
	u.Host = host
	u.Fragment = ""
	u.RawQuery = upgradeQueryParams(p.Cache, client, u.RawQuery, req.URL.Query())

	var body io.Reader
	if req.ContentLength != 0 || len(req.TransferEncoding) > 0 {
		body = req.Body
	}

	out, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if req.ContentLength > 0 {
		out.ContentLength = req.ContentLength
	}

	for name, values := range req.Header {
		if blacklistedRequestHeader(name) {
			continue
		}
		out.Header[name] = values
	}

	// a cross-origin request whose Origin the proxy downgraded earlier must
	// be replayed with the scheme the origin actually uses
	if origin := out.Header.Get("Origin"); origin != "" {
		if ou, err := url.Parse(origin); err == nil && ou.Host != "" && p.Cache.HasDomain(client, ou.Host) {
			ou.Scheme = "https"
			out.Header.Set("Origin", ou.String())
		}
	}

	for _, ck := range filterClientCookies(p.Cache, client, host, req.Cookies()) {
		out.AddCookie(ck)
	}

	return out, nil
}

// upgradeQueryParams restores https on query values that are themselves
// absolute insecure URLs this client saw stripped earlier. Single-page apps
// carry previously downgraded deep links back as parameters; the origin
// expects them secure.
func upgradeQueryParams(clientCache cache.ClientCache, client, rawQuery string, params url.Values) string {
	changed := false
	for _, values := range params {
		for i, value := range values {
			if !insecureURLValue.MatchString(value) {
				continue
			}
			u, err := url.Parse(value)
			if err != nil || u.Host == "" {
				continue
			}
			if clientCache.HasURL(client, u.Host, relURL(u)) {
				u.Scheme = "https"
				values[i] = u.String()
				changed = true
			}
		}
	}
	if !changed {
		return rawQuery
	}
	return params.Encode()
}
