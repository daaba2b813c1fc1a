package wsconn

import (
	"net/http"
	"time"
)

// Options tunes the keep-alive and framing behavior of a Conn. The
// defaults mirror a conservative streaming-log websocket: short write
// timeout, generous pong tolerance, pings sent well inside that tolerance.
type Options struct {
	// MaxMessageBytes bounds a single inbound message (gorilla fails the
	// read and closes the connection past this). Zero means unbounded.
	MaxMessageBytes int64

	WriteWait  time.Duration
	PongWait   time.Duration
	PingPeriod time.Duration

	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header during the server-side
	// handshake. Nil accepts every origin — callers that need to restrict
	// this should gate it one layer up, via a router policy, the way
	// every other cross-cutting access check in this framework works.
	CheckOrigin func(r *http.Request) bool
}

// DefaultOptions returns the framework's baseline keep-alive tuning.
func DefaultOptions() Options {
	return Options{
		MaxMessageBytes: 1 << 20,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
}

func (o Options) readBufferSize() int {
	if o.ReadBufferSize <= 0 {
		return DefaultOptions().ReadBufferSize
	}
	return o.ReadBufferSize
}

func (o Options) writeBufferSize() int {
	if o.WriteBufferSize <= 0 {
		return DefaultOptions().WriteBufferSize
	}
	return o.WriteBufferSize
}

func (o Options) pongWait() time.Duration {
	if o.PongWait <= 0 {
		return DefaultOptions().PongWait
	}
	return o.PongWait
}

func (o Options) pingPeriod() time.Duration {
	if o.PingPeriod <= 0 {
		return DefaultOptions().PingPeriod
	}
	return o.PingPeriod
}

func (o Options) writeWait() time.Duration {
	if o.WriteWait <= 0 {
		return DefaultOptions().WriteWait
	}
	return o.WriteWait
}

func (o Options) checkOrigin() func(r *http.Request) bool {
	if o.CheckOrigin != nil {
		return o.CheckOrigin
	}
	return func(*http.Request) bool { return true }
}
