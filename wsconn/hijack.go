package wsconn

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/http"
)

// prefixConn replays bytes already pulled off the wire into our own
// bufio.Reader (but not yet consumed by the HTTP parser) ahead of further
// reads from the raw connection. gorilla/websocket's Upgrader refuses to
// upgrade a hijacked connection whose bufio.Reader reports buffered data,
// so the hijacked side must start from a reader with nothing buffered
// while still seeing every byte the client actually sent.
type prefixConn struct {
	net.Conn
	leftover []byte
}

func (c *prefixConn) Read(p []byte) (int, error) {
	if len(c.leftover) > 0 {
		n := copy(p, c.leftover)
		c.leftover = c.leftover[n:]
		return n, nil
	}
	return c.Conn.Read(p)
}

func drainBuffered(r *bufio.Reader) []byte {
	n := r.Buffered()
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	_, _ = io.ReadFull(r, buf) // reads only already-buffered bytes, cannot fail
	return buf
}

// hijackResponseWriter is the minimal http.ResponseWriter + http.Hijacker
// corsair builds by hand so the upgrade path can run gorilla/websocket's
// real Upgrader against a connection this framework parsed itself rather
// than one owned by net/http's server loop.
type hijackResponseWriter struct {
	header http.Header
	conn   net.Conn
	status int
}

func (w *hijackResponseWriter) Header() http.Header { return w.header }

func (w *hijackResponseWriter) WriteHeader(status int) { w.status = status }

// Write is only reached on the Upgrader's failure path (it calls
// http.Error, which calls WriteHeader then Write); the success path writes
// the 101 response directly onto the hijacked connection itself.
func (w *hijackResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	if _, err := fmt.Fprintf(w.conn, "HTTP/1.1 %d %s\r\n\r\n", w.status, http.StatusText(w.status)); err != nil {
		return 0, err
	}
	return w.conn.Write(b)
}

func (w *hijackResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	rw := bufio.NewReadWriter(bufio.NewReader(w.conn), bufio.NewWriter(w.conn))
	return w.conn, rw, nil
}
