package client_test

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/client"
	"github.com/corsair-io/corsair/httpx"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// serveOneRequest accepts a single connection on ln, reads one request
// off it, and replies with a canned 200 response.
func serveOneRequest(t *testing.T, ln net.Listener, body string) {
	t.Helper()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		_, _ = br.ReadString('\n') // request line
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}

		resp := "HTTP/1.1 200 OK\r\nContent-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n" + body
		_, _ = conn.Write([]byte(resp))
	}()
}

func TestController_Do_ReadsResponse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serveOneRequest(t, ln, "pong")

	c := client.New(client.ControllerConfig{Logger: discardLogger()})

	req := httpx.NewHeader(http.MethodGet, "/ping", "HTTP/1.1")
	req.Set("Connection", "close")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	respHeader, gen, closeFn, err := c.Do(ctx, ln.Addr().String(), false, req)
	require.NoError(t, err)
	defer closeFn()

	status, err := respHeader.StatusCode()
	require.NoError(t, err)
	assert.Equal(t, 200, status)

	done := make(chan struct{})
	var gotBody string
	gen.Body(httpx.DefaultResponseFilter, func(r *httpx.Request, err error) {
		defer close(done)
		require.NoError(t, err)
		raw, rerr := httpx.ReadAll(r.Body)
		require.NoError(t, rerr)
		gotBody = string(raw)
	})
	<-done

	assert.Equal(t, "pong", gotBody)
}
