// Package httpconn implements the per-connection HTTP/1.1 state machine:
// read a request header, dispatch it through a router.Router, write the
// response, and either loop for the next pipelined/keep-alive request or
// close — handing off to package wsconn the moment a request asks for a
// protocol upgrade. One Conn owns one goroutine for its entire life, the
// same shape spec.md §4.3 describes with its explicit state enum, realized
// here as a single blocking Serve call instead of chained async callbacks.
package httpconn

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
	"github.com/corsair-io/corsair/transport"
	"github.com/corsair-io/corsair/wsconn"
)

// DefaultMaxBodyBytes bounds a request body when a Conn is not given a
// more specific limit.
const DefaultMaxBodyBytes int64 = 100 << 20

// IdleTimeout bounds how long a Conn waits for the next request's header
// before giving up on an otherwise-idle keep-alive connection.
const IdleTimeout = 30 * time.Second

// WriteTimeout bounds writing a single response.
const WriteTimeout = 30 * time.Second

// State is an HTTP connection's current stage within one request/response
// cycle.
type State int32

const (
	StateReadingHeader State = iota
	StateDispatching
	StateWriting
	StateUpgraded
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReadingHeader:
		return "reading_header"
	case StateDispatching:
		return "dispatching"
	case StateWriting:
		return "writing"
	case StateUpgraded:
		return "upgraded"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is a single accepted HTTP connection.
type Conn struct {
	stream transport.Stream
	reader *bufio.Reader
	writer *bufio.Writer

	maxBodyBytes int64
	logger       *slog.Logger
	id           uuid.UUID

	wsOptions wsconn.Options

	state atomic.Int32
}

// New wraps an already-accepted (and, for TLS, already-handshaken) stream.
// maxBodyBytes <= 0 falls back to DefaultMaxBodyBytes.
func New(stream transport.Stream, logger *slog.Logger, maxBodyBytes int64) *Conn {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Conn{
		stream:       stream,
		reader:       bufio.NewReader(stream),
		writer:       bufio.NewWriter(stream),
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
		id:           uuid.New(),
		wsOptions:    wsconn.DefaultOptions(),
	}
}

// WithWebSocketOptions overrides the keep-alive tuning passed to wsconn on
// an upgrade. Call before Serve.
func (c *Conn) WithWebSocketOptions(opts wsconn.Options) *Conn {
	c.wsOptions = opts
	return c
}

// ID identifies this connection for logging/diagnostics.
func (c *Conn) ID() uuid.UUID { return c.id }

// State reports the connection's current stage.
func (c *Conn) State() State { return State(c.state.Load()) }

// Serve drives the connection until the peer disconnects, an error or
// timeout occurs, ctx is cancelled, or a request upgrades to WebSocket (at
// which point this call blocks for the lifetime of that WebSocket
// connection too, since the upgraded connection's application handler is
// expected to run on this same goroutine via its Serve method).
func (c *Conn) Serve(ctx context.Context, root *router.Router) {
	defer c.recoverAndClose()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.state.Store(int32(StateReadingHeader))
		_ = c.stream.SetReadDeadline(time.Now().Add(IdleTimeout))

		header, err := httpx.ReadHeader(c.reader)
		if err != nil {
			if errors.Is(err, httpx.ErrMalformedHeader) {
				resp := httpx.BadRequest("malformed request header")
				resp.Set("Connection", "close")
				resp.PreparePayload()
				_ = c.stream.SetWriteDeadline(time.Now().Add(WriteTimeout))
				_ = resp.WriteTo(c.writer)
			}
			return
		}
		_ = c.stream.SetReadDeadline(time.Time{})

		if header.IsUpgrade() {
			c.serveUpgrade(header, root)
			return
		}

		c.state.Store(int32(StateDispatching))
		gen := httpx.NewRequestGenerator(header, c.reader, c.maxBodyBytes)

		keepAlive, err := c.dispatchAndWrite(root, gen)
		if err != nil || !keepAlive {
			return
		}
	}
}

func (c *Conn) dispatchAndWrite(root *router.Router, gen *httpx.RequestGenerator) (keepAlive bool, writeErr error) {
	root.DispatchHTTP(gen, func(resp *httpx.Response) {
		c.state.Store(int32(StateWriting))
		_ = c.stream.SetWriteDeadline(time.Now().Add(WriteTimeout))
		writeErr = resp.WriteTo(c.writer)
		keepAlive = resp.KeepAlive && writeErr == nil
	})
	return keepAlive, writeErr
}

func (c *Conn) serveUpgrade(header *httpx.Header, root *router.Router) {
	c.state.Store(int32(StateUpgraded))

	nc, ok := c.stream.(net.Conn)
	if !ok {
		c.rejectUpgrade("this connection does not support protocol upgrades")
		return
	}

	err := root.DispatchWebSocket(header, func() (router.WSConn, error) {
		return wsconn.Accept(nc, c.reader, header, c.logger, c.wsOptions)
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("httpconn: websocket upgrade not handled", slog.String("error", err.Error()))
		}
		c.rejectUpgrade("no websocket endpoint matches this resource")
	}
}

// rejectUpgrade answers a plain HTTP response when no endpoint accepted
// the upgrade — safe to do only because a failed DispatchWebSocket never
// called accept, so the hijack/handshake plumbing in wsconn never touched
// the connection.
func (c *Conn) rejectUpgrade(reason string) {
	resp := httpx.BadRequest(reason)
	resp.Version = "HTTP/1.1"
	resp.PreparePayload()
	_ = resp.WriteTo(c.writer)
}

func (c *Conn) recoverAndClose() {
	if rec := recover(); rec != nil && c.logger != nil {
		c.logger.Error("httpconn: connection goroutine panicked", slog.Any("recover", rec), slog.String("detail", fmt.Sprint(rec)))
	}
	c.state.Store(int32(StateClosing))
	_ = c.writer.Flush()
	_ = c.stream.Close()
	c.state.Store(int32(StateClosed))
}
