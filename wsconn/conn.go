// Package wsconn wraps a gorilla/websocket.Conn with the connection state
// machine and action-queue strand spec.md §4.4 describes: a server-side
// RFC 6455 upgrade off an already-parsed HTTP request, a per-direction
// goroutine draining a buffered queue of closures so no two writes overlap
// on the underlying socket and inbound messages reach OnMessage one at a
// time in arrival order, and an open/closing/closed lifecycle.
package wsconn

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/transport"
	"github.com/corsair-io/corsair/wsconn/internal/actionqueue"
)

// Message type constants re-exported from gorilla/websocket so callers
// never need to import it directly.
const (
	TextMessage   = websocket.TextMessage
	BinaryMessage = websocket.BinaryMessage
)

// State is a WebSocket connection's lifecycle stage.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is a single upgraded WebSocket connection.
type Conn struct {
	id     uuid.UUID
	ws     *websocket.Conn
	logger *slog.Logger
	opts   Options

	state atomic.Int32

	readQ  *actionqueue.Queue
	writeQ *actionqueue.Queue

	onMessage func(messageType int, data []byte)
	onClose   func(err error)

	stopPing  chan struct{}
	closeOnce sync.Once
}

// Accept performs the server-side RFC 6455 handshake over a connection
// this framework has already read an HTTP request header from. reader is
// the same *bufio.Reader httpconn used to parse that header; any bytes it
// has already buffered past the header are replayed to gorilla's Upgrader
// rather than dropped.
func Accept(nc net.Conn, reader *bufio.Reader, header *httpx.Header, logger *slog.Logger, opts Options) (*Conn, error) {
	req, err := http.NewRequest(header.Method, header.Target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building upgrade request: %w", ErrUpgradeFailed, err)
	}
	req.Header = header.Fields
	req.Proto = header.Version

	pc := &prefixConn{Conn: nc, leftover: drainBuffered(reader)}
	hw := &hijackResponseWriter{header: make(http.Header), conn: pc}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  opts.readBufferSize(),
		WriteBufferSize: opts.writeBufferSize(),
		CheckOrigin:     opts.checkOrigin(),
	}

	ws, err := upgrader.Upgrade(hw, req, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpgradeFailed, err)
	}

	return newConn(ws, logger, opts), nil
}

// Connect performs the client-side handshake against url ("ws://" or
// "wss://"), the dual of Accept.
func Connect(ctx context.Context, url string, header http.Header, tlsConfig *tls.Config, logger *slog.Logger, opts Options) (*Conn, *http.Response, error) {
	dialer := websocket.Dialer{
		TLSClientConfig:  tlsConfig,
		HandshakeTimeout: transport.HandshakeTimeout,
		ReadBufferSize:   opts.readBufferSize(),
		WriteBufferSize:  opts.writeBufferSize(),
	}

	ws, resp, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, resp, fmt.Errorf("%w: %w", ErrUpgradeFailed, err)
	}

	return newConn(ws, logger, opts), resp, nil
}

func newConn(ws *websocket.Conn, logger *slog.Logger, opts Options) *Conn {
	c := &Conn{
		id:       uuid.New(),
		ws:       ws,
		logger:   logger,
		opts:     opts,
		readQ:    actionqueue.New(16),
		writeQ:   actionqueue.New(16),
		stopPing: make(chan struct{}),
	}
	return c
}

// ID identifies this connection for logging/diagnostics.
func (c *Conn) ID() uuid.UUID { return c.id }

// State reports the connection's current lifecycle stage.
func (c *Conn) State() State { return State(c.state.Load()) }

// OnMessage registers the callback invoked for every inbound data frame.
// It must be called before Serve starts reading.
func (c *Conn) OnMessage(fn func(messageType int, data []byte)) { c.onMessage = fn }

// OnClose registers the callback invoked once, when the connection leaves
// the open state for any reason (peer close, write failure, ForceDisconnect).
func (c *Conn) OnClose(fn func(err error)) { c.onClose = fn }

// Serve runs the read pump until the peer closes the connection or a read
// error occurs. It owns the calling goroutine the same way httpconn.Conn's
// Serve does, and returns once the connection has fully torn down.
func (c *Conn) Serve() {
	c.startPing()

	limit := c.opts.MaxMessageBytes
	if limit > 0 {
		c.ws.SetReadLimit(limit)
	}
	pongWait := c.opts.pongWait()
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			c.teardown(err)
			return
		}

		msg := data
		messageType := mt
		c.readQ.Enqueue(func() {
			if c.onMessage != nil {
				c.onMessage(messageType, msg)
			}
		})
	}
}

func (c *Conn) startPing() {
	period := c.opts.pingPeriod()
	go func() {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopPing:
				return
			case <-ticker.C:
				ok := c.writeQ.Enqueue(func() {
					c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeWait()))
					_ = c.ws.WriteMessage(websocket.PingMessage, nil)
				})
				if !ok {
					return
				}
			}
		}
	}()
}

// Send writes a single message, blocking until it has been handed to the
// socket or the connection closes. Concurrent Send calls are safe — they
// serialize through the write queue.
func (c *Conn) Send(messageType int, data []byte) error {
	if c.State() != StateOpen {
		return ErrClosed
	}

	errCh := make(chan error, 1)
	ok := c.writeQ.Enqueue(func() {
		c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeWait()))
		errCh <- c.ws.WriteMessage(messageType, data)
	})
	if !ok {
		return ErrClosed
	}
	return <-errCh
}

// Disconnect performs a graceful close handshake: a close frame carrying
// code/reason, then teardown of the underlying socket and queues.
func (c *Conn) Disconnect(code int, reason string) error {
	if !c.state.CompareAndSwap(int32(StateOpen), int32(StateClosing)) {
		return ErrClosed
	}

	errCh := make(chan error, 1)
	ok := c.writeQ.Enqueue(func() {
		c.ws.SetWriteDeadline(time.Now().Add(c.opts.writeWait()))
		errCh <- c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
	})
	if !ok {
		c.teardown(nil)
		return ErrClosed
	}
	err := <-errCh

	c.teardown(nil)
	return err
}

// ForceDisconnect tears down the connection immediately, without
// attempting a close handshake.
func (c *Conn) ForceDisconnect() error {
	prev := State(c.state.Swap(int32(StateClosed)))
	if prev == StateClosed {
		return ErrClosed
	}
	c.teardown(nil)
	return nil
}

func (c *Conn) teardown(err error) {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		close(c.stopPing)
		c.writeQ.Close()
		c.readQ.Close()
		_ = c.ws.Close()
		if c.onClose != nil {
			c.onClose(err)
		}
	})
}
