package proxy

import (
	"bytes"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"

	"tls-strip-proxy/cache"
)

// HtmlRewriter rewrites text/html bodies: every attribute value that is an
// absolute https URL or a root-relative reference is downgraded and
// registered, and inline script/style text gets the two-pass text rewrite.
type HtmlRewriter struct {
	cache  cache.ClientCache
	text   *TextRewriter
	logger zerolog.Logger
}

func NewHtmlRewriter(clientCache cache.ClientCache, logger zerolog.Logger) *HtmlRewriter {
	return &HtmlRewriter{
		cache:  clientCache,
		text:   NewTextRewriter(clientCache),
		logger: logger,
	}
}

func (hr *HtmlRewriter) ShouldRewrite(contentType string) bool {
	return contentType == "text/html"
}

func (hr *HtmlRewriter) Rewrite(body []byte, client, host string) []byte {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		// never fail the response over a parse error; serve the body as-is
		hr.logger.Debug().Err(err).Str("host", host).Msg("failed to parse html body")
		return body
	}

	hr.walk(doc, client, host)

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		hr.logger.Debug().Err(err).Str("host", host).Msg("failed to render html body")
		return body
	}
	return buf.Bytes()
}

func (hr *HtmlRewriter) walk(n *html.Node, client, host string) {
	if n.Type == html.ElementNode {
		for i, attr := range n.Attr {
			n.Attr[i].Val = hr.rewriteAttr(attr.Val, client, host)
		}
		if n.Data == "script" || n.Data == "style" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					c.Data = hr.text.rewriteText(c.Data, client, host)
				}
			}
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hr.walk(c, client, host)
	}
}

func (hr *HtmlRewriter) rewriteAttr(val, client, host string) string {
	switch {
	case secureURLValue.MatchString(val):
		hr.text.registerSecure(client, val)
		// the scheme is always the first five bytes here, whatever its case
		return "http" + val[len("https"):]
	case relativeURLValue.MatchString(val):
		hr.cache.AddURL(client, host, stripFragment(val))
		return "http://" + host + val
	}
	return val
}
