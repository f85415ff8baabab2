package proxy

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

// Headers never forwarded to the client. Strict-Transport-Security would undo
// the downgrade; Content-Length, Content-Encoding and Transfer-Encoding were
// computed for the original body and are stale after the rewrite; Set-Cookie
// values are re-emitted individually after sanitization.
var responseHeaderBlacklist = []string{
	"Strict-Transport-Security",
	"Content-Length",
	"Content-Encoding",
	"Transfer-Encoding",
	"Set-Cookie",
}

func blacklistedResponseHeader(name string) bool {
	for _, blacklisted := range responseHeaderBlacklist {
		if strings.EqualFold(name, blacklisted) {
			return true
		}
	}
	return false
}

// downgradeResponse builds the plaintext response for the client out of the
// TLS upstream response: body rewrite by content type, header stripping,
// redirect downgrade and cookie sanitization.
func (p *HttpStripProxy) downgradeResponse(resp *http.Response, client, host string) (*http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}

	contentType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		// undeclared or malformed content type: treat the body as opaque
		contentType = ""
	}
	for _, rewriter := range p.Rewriters {
		if rewriter.ShouldRewrite(contentType) {
			body = rewriter.Rewrite(body, client, host)
			break
		}
	}

	header := make(http.Header, len(resp.Header))
	for name, values := range resp.Header {
		if blacklistedResponseHeader(name) {
			continue
		}
		header[name] = values
	}

	if location := header.Get("Location"); location != "" {
		header.Set("Location", p.downgradeLocation(location, client))
	}

	// cookie names are recorded against the host that actually set them
	originHost := host
	if resp.Request != nil && resp.Request.URL != nil && resp.Request.URL.Host != "" {
		originHost = resp.Request.URL.Host
	}
	for _, ck := range resp.Cookies() {
		sanitized := sanitizeSetCookie(p.Cache, client, originHost, ck)
		if sanitized == nil {
			continue
		}
		header.Add("Set-Cookie", sanitized.String())
	}

	return &http.Response{
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		StatusCode:    resp.StatusCode,
		Header:        header,
		ContentLength: int64(len(body)),
		Body:          io.NopCloser(bytes.NewReader(body)),
		Close:         true,
	}, nil
}

// downgradeLocation swaps a secure redirect target to plaintext and remembers
// that the target path was originally secure, so the follow-up request is
// replayed over TLS.
func (p *HttpStripProxy) downgradeLocation(location, client string) string {
	u, err := url.Parse(location)
	if err != nil || !strings.EqualFold(u.Scheme, "https") {
		return location
	}
	p.Cache.AddURL(client, u.Host, relURL(u))
	u.Scheme = "http"
	return u.String()
}
