package httpconn_test

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/httpconn"
	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
	"github.com/corsair-io/corsair/transport"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServe_KeepAliveServesTwoRequestsThenCloses(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	r := router.New(discardLogger())
	require.NoError(t, r.Add(http.MethodGet, `^/ping$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "pong"})
	}))

	conn := httpconn.New(transport.NewPlainStream(serverConn), discardLogger(), 0)
	serveDone := make(chan struct{})
	go func() {
		conn.Serve(context.Background(), r)
		close(serveDone)
	}()

	clientReader := bufio.NewReader(clientConn)

	for i := 0; i < 2; i++ {
		_, err := clientConn.Write([]byte("GET /ping HTTP/1.1\r\nHost: x\r\n\r\n"))
		require.NoError(t, err)

		resp, err := http.ReadResponse(clientReader, nil)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		assert.Equal(t, 200, resp.StatusCode)
		assert.Equal(t, "pong", string(body))
	}

	clientConn.Close()

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after client closed the connection")
	}
}

func TestServe_ConnectionCloseHeaderEndsLoop(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	r := router.New(discardLogger())
	require.NoError(t, r.Add(http.MethodGet, `^/bye$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "bye"})
	}))

	conn := httpconn.New(transport.NewPlainStream(serverConn), discardLogger(), 0)
	serveDone := make(chan struct{})
	go func() {
		conn.Serve(context.Background(), r)
		close(serveDone)
	}()

	clientReader := bufio.NewReader(clientConn)
	_, err := clientConn.Write([]byte("GET /bye HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	resp, err := http.ReadResponse(clientReader, nil)
	require.NoError(t, err)
	io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "close", resp.Header.Get("Connection"))

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not close the connection after Connection: close")
	}

	clientConn.Close()
}

func TestServe_MalformedRequestClosesConnection(t *testing.T) {
	serverConn, clientConn := net.Pipe()

	r := router.New(discardLogger())
	conn := httpconn.New(transport.NewPlainStream(serverConn), discardLogger(), 0)
	serveDone := make(chan struct{})
	go func() {
		conn.Serve(context.Background(), r)
		close(serveDone)
	}()

	clientConn.Write([]byte("not a valid request line\r\n\r\n"))
	clientConn.Close()

	select {
	case <-serveDone:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return for a malformed request")
	}
}
