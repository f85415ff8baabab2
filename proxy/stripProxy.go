package proxy

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"tls-strip-proxy/cache"
)

// HttpStripProxy serves plaintext HTTP to clients while replaying their
// requests to the origin over TLS, rewriting everything on the way back so
// the client never sees a secure-scheme reference.
type HttpStripProxy struct {
	Cache     cache.ClientCache
	Client    *http.Client
	Rewriters []BodyRewriter
	Timeout   time.Duration
	Logger    zerolog.Logger
	Verbose   bool
}

func NewHttpStripProxy(clientCache cache.ClientCache, logger zerolog.Logger, timeout time.Duration, insecureUpstream bool) *HttpStripProxy {
	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureUpstream},
		},
		// the response transformer has to see and rewrite redirects itself;
		// auto-following would hand the client a secure target unrewritten
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &HttpStripProxy{
		Cache:  clientCache,
		Client: client,
		Rewriters: []BodyRewriter{
			NewHtmlRewriter(clientCache, logger),
			NewTextRewriter(clientCache),
		},
		Timeout: timeout,
		Logger:  logger,
	}
}

var requestCounter uint64 = 0

func (p *HttpStripProxy) HandleHttp(conn net.Conn) {
	defer conn.Close()

	client := clientKey(conn.RemoteAddr())

	reader := bufio.NewReader(conn)
	request, err := http.ReadRequest(reader)
	if err != nil {
		p.Logger.Debug().Err(err).Str("client", client).Msg("failed to read request")
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		return
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if p.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	// For body-less requests, watch the connection so an in-flight upstream
	// call is abandoned when the client goes away. Requests with a body hand
	// the reader to the upstream call instead.
	if request.ContentLength == 0 && len(request.TransferEncoding) == 0 {
		go func() {
			var b [1]byte
			reader.Read(b[:])
			cancel()
		}()
	}

	counter := atomic.AddUint64(&requestCounter, 1)

	upstreamReq, err := p.upstreamRequest(ctx, request, client)
	if err != nil {
		p.Logger.Warn().Err(err).Str("client", client).Msg("failed to build upstream request")
		conn.Write([]byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		return
	}

	if p.Verbose {
		printRequest(upstreamReq, counter)
	}

	response, err := p.Client.Do(upstreamReq)
	if err != nil {
		p.Logger.Warn().Err(err).Str("client", client).Str("host", request.Host).Msg("upstream request failed")
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}
	defer response.Body.Close()

	stripped, err := p.downgradeResponse(response, client, request.Host)
	if err != nil {
		p.Logger.Warn().Err(err).Str("client", client).Str("host", request.Host).Msg("failed to transform response")
		conn.Write([]byte("HTTP/1.1 502 Bad Gateway\r\n\r\n"))
		return
	}

	if p.Verbose {
		printResponse(stripped, counter)
	}

	if err := stripped.Write(conn); err != nil {
		p.Logger.Debug().Err(err).Str("client", client).Msg("client closed connection before response was written")
		return
	}

	p.Logger.Info().
		Str("client", client).
		Str("host", request.Host).
		Str("method", request.Method).
		Int("status", stripped.StatusCode).
		Msg("request stripped")
}

// clientKey scopes cache state to a client endpoint. The port is dropped:
// browsers open a fresh source port per connection and have to observe the
// state built up by their earlier requests.
func clientKey(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
