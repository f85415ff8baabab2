package proxy

import (
	"net/url"

	"tls-strip-proxy/cache"
)

// TextRewriter handles script and stylesheet bodies served as top-level
// responses, and the text content of inline <script>/<style> elements.
type TextRewriter struct {
	cache cache.ClientCache
}

func NewTextRewriter(clientCache cache.ClientCache) *TextRewriter {
	return &TextRewriter{cache: clientCache}
}

func (tr *TextRewriter) ShouldRewrite(contentType string) bool {
	return contentType == "application/javascript" || contentType == "text/css"
}

func (tr *TextRewriter) Rewrite(body []byte, client, host string) []byte {
	return []byte(tr.rewriteText(string(body), client, host))
}

// rewriteText runs the two substitution passes in the required order:
// relative references first, then absolute https ones. Reversed, the second
// pass could re-match a reference the first pass just absolutized.
func (tr *TextRewriter) rewriteText(text, client, host string) string {
	text = replaceRelative(text, host, func(match, matchHost string) {
		tr.cache.AddURL(client, matchHost, stripFragment(match))
	})
	return replaceSecure(text, func(match, _ string) {
		tr.registerSecure(client, match)
	})
}

func (tr *TextRewriter) registerSecure(client, rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return
	}
	tr.cache.AddURL(client, u.Host, relURL(u))
}
