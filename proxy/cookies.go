package proxy

import (
	"net/http"

	"tls-strip-proxy/cache"
)

// filterClientCookies keeps only cookies the origin was seen issuing to this
// client for this host. A session established before the proxy was in the
// path is an unknown name here and gets dropped, killing that session.
func filterClientCookies(clientCache cache.ClientCache, client, host string, cookies []*http.Cookie) []*http.Cookie {
	var allowed []*http.Cookie
	for _, ck := range cookies {
		if clientCache.HasCookie(client, host, ck.Name) {
			allowed = append(allowed, ck)
		}
	}
	return allowed
}

// sanitizeSetCookie records a cookie the origin set as allowed for
// (client, host) and strips what the plaintext side must not carry: the
// Secure flag and the raw parse leftovers. Attributes outside the reserved
// set were already dropped by the Set-Cookie parser. Returns nil when the
// cookie cannot be re-serialized.
func sanitizeSetCookie(clientCache cache.ClientCache, client, host string, ck *http.Cookie) *http.Cookie {
	if ck == nil || ck.Name == "" {
		return nil
	}
	clientCache.AddCookie(client, host, ck.Name)

	sanitized := *ck
	sanitized.Secure = false
	sanitized.Raw = ""
	sanitized.RawExpires = ""
	sanitized.Unparsed = nil

	if err := sanitized.Valid(); err != nil {
		return nil
	}
	return &sanitized
}
