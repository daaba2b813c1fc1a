package listener_test

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/listener"
	"github.com/corsair-io/corsair/router"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()
	r := router.New(discardLogger())
	require.NoError(t, r.Add(http.MethodGet, `^/hello$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "world"})
	}))
	return r
}

func TestListener_PlainHTTPRoundTrip(t *testing.T) {
	r := newTestRouter(t)
	l := listener.New(listener.Config{Addr: "127.0.0.1:0", Logger: discardLogger()}, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errs, err := l.Start(ctx)
	require.NoError(t, err)
	defer l.Close()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "world", string(body))

	select {
	case e := <-errs:
		t.Fatalf("unexpected listener error: %v", e)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestListener_TLSSniffedRoundTrip(t *testing.T) {
	tlsCfg := selfSignedServerConfig(t)

	r := newTestRouter(t)
	l := listener.New(listener.Config{Addr: "127.0.0.1:0", TLSConfig: tlsCfg, Logger: discardLogger()}, r)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := l.Start(ctx)
	require.NoError(t, err)
	defer l.Close()

	clientCfg := &tls.Config{InsecureSkipVerify: true}
	conn, err := tls.Dial("tcp", l.Addr().String(), clientCfg)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /hello HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	resp, err := http.ReadResponse(bufio.NewReader(conn), nil)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "world", string(body))
}

func selfSignedServerConfig(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	return &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
}
