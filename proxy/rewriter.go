package proxy

// BodyRewriter rewrites one class of response bodies so no secure-scheme
// reference survives toward the client. Implementations register every
// rewritten reference in the client cache so the follow-up request can be
// replayed over TLS. Bodies no rewriter claims pass through untouched.
type BodyRewriter interface {
	ShouldRewrite(contentType string) bool
	Rewrite(body []byte, client, host string) []byte
}
