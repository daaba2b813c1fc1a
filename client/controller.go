// Package client is the outbound counterpart to listener/httpconn: it
// resolves a host, dials (optionally through TLS), writes a request, and
// reads the response header synchronously before materializing the body
// through a Filter — the same "header now, body on demand" shape the
// server side uses, mirrored for an outbound call.
package client

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/transport"
	"github.com/corsair-io/corsair/wsconn"
)

// ControllerConfig mirrors spec.md §6's client configuration surface.
type ControllerConfig struct {
	UserAgent     string
	TLSConfig     *tls.Config
	DialTimeout   time.Duration
	MaxBodyBytes  int64
	Logger        *slog.Logger
	WebSocketOpts wsconn.Options
}

// Controller issues HTTP requests and opens WebSocket connections against
// a remote host, reusing no connection state between calls — every Do or
// DialWebSocket call dials fresh, matching the teacher's stateless
// request-per-call client usage.
type Controller struct {
	cfg ControllerConfig
}

// New builds a Controller. DialTimeout defaults to 10s, MaxBodyBytes to
// 100MiB, and Logger to slog.Default() when left zero.
func New(cfg ControllerConfig) *Controller {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 100 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "corsair-client/1.0"
	}
	return &Controller{cfg: cfg}
}

// Do sends req to addr ("host:port") and returns the response header
// synchronously plus a ResponseGenerator to materialize the body. useTLS
// selects plain vs TLS transport.
func (c *Controller) Do(ctx context.Context, addr string, useTLS bool, req *httpx.Header) (*httpx.Header, *httpx.ResponseGenerator, func() error, error) {
	stream, err := c.dial(ctx, addr, useTLS)
	if err != nil {
		return nil, nil, nil, err
	}

	req.Set("User-Agent", c.cfg.UserAgent)
	if req.Get("Host") == "" {
		req.Set("Host", addr)
	}

	w := bufio.NewWriter(stream)
	err = req.WriteRequestLine(w)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		_ = stream.Close()
		return nil, nil, nil, fmt.Errorf("client: writing request: %w", err)
	}

	r := bufio.NewReader(stream)
	respHeader, err := httpx.ReadResponseHeader(r)
	if err != nil {
		_ = stream.Close()
		return nil, nil, nil, fmt.Errorf("client: reading response: %w", err)
	}

	gen := httpx.NewResponseGenerator(respHeader, r, c.cfg.MaxBodyBytes)
	closeFn := stream.Close
	return respHeader, gen, closeFn, nil
}

// DialWebSocket performs the client-side RFC 6455 handshake against url
// ("ws://..." or "wss://...").
func (c *Controller) DialWebSocket(ctx context.Context, url string, header http.Header) (*wsconn.Conn, *http.Response, error) {
	if header == nil {
		header = make(http.Header)
	}
	header.Set("User-Agent", c.cfg.UserAgent)

	return wsconn.Connect(ctx, url, header, c.cfg.TLSConfig, c.cfg.Logger, c.cfg.WebSocketOpts)
}

func (c *Controller) dial(ctx context.Context, addr string, useTLS bool) (transport.Stream, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	var d net.Dialer
	nc, err := d.DialContext(dialCtx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("client: dial %s: %w", addr, err)
	}

	if !useTLS {
		return transport.NewPlainStream(nc), nil
	}

	tlsConn := tls.Client(nc, c.cfg.TLSConfig)
	stream := transport.NewTLSStream(tlsConn)

	hctx, hcancel := context.WithTimeout(ctx, transport.HandshakeTimeout)
	defer hcancel()
	if err := transport.Handshake(hctx, stream); err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("client: TLS handshake with %s: %w", addr, err)
	}
	return stream, nil
}
