package router_test

import (
	"bufio"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufioReaderFromEmptyBody() *bufio.Reader {
	return bufio.NewReader(strings.NewReader(""))
}

func dispatch(t *testing.T, r *router.Router, method, target string) *httpx.Response {
	t.Helper()
	header := httpx.NewHeader(method, target, "HTTP/1.1")
	header.Set("Content-Length", "0")

	reader := bufioReaderFromEmptyBody()
	gen := httpx.NewRequestGenerator(header, reader, 1<<20)

	var got *httpx.Response
	r.DispatchHTTP(gen, func(resp *httpx.Response) { got = resp })
	require.NotNil(t, got)
	return got
}

func TestDispatch_RegexEndpointWithCaptures(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.AddCapturing(http.MethodGet, `^/item/(\d+)$`, func(req *httpx.Request, captures []string) *httpx.Response {
		require.Len(t, captures, 1)
		return httpx.Ok(&httpx.StringBody{Data: "item " + captures[0]})
	}))

	resp := dispatch(t, r, http.MethodGet, "/item/42")
	assert.Equal(t, 200, resp.Status)
}

func TestDispatch_MethodMismatchFallsThrough(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.Add(http.MethodGet, `^/widgets$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "ok"})
	}))

	resp := dispatch(t, r, http.MethodPost, "/widgets")
	assert.Equal(t, 400, resp.Status)
}

func TestDispatch_SubrouterDelegationStripsPrefix(t *testing.T) {
	api := router.New(discardLogger())
	require.NoError(t, api.Add(http.MethodGet, `^/users$`, func(req *httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: req.Header.Target})
	}))

	root := router.New(discardLogger())
	require.NoError(t, root.AddSubrouter("/api", api))

	resp := dispatch(t, root, http.MethodGet, "/api/users")
	assert.Equal(t, 200, resp.Status)
}

func TestDispatch_PolicyShortCircuits(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.AddPolicy(`^/admin.*$`, func(h *httpx.Header) *httpx.Response {
		if h.Get("Authorization") == "" {
			return httpx.NewResponse(401)
		}
		return nil
	}))
	require.NoError(t, r.Add(http.MethodGet, `^/admin/panel$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "panel"})
	}))

	resp := dispatch(t, r, http.MethodGet, "/admin/panel")
	assert.Equal(t, 401, resp.Status)
}

func TestDispatch_PolicyPassesThrough(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.AddPolicy(`^/admin.*$`, func(h *httpx.Header) *httpx.Response {
		if h.Get("Authorization") != "" {
			return nil
		}
		return httpx.NewResponse(401)
	}))
	require.NoError(t, r.Add(http.MethodGet, `^/admin/panel$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "panel"})
	}))

	header := httpx.NewHeader(http.MethodGet, "/admin/panel", "HTTP/1.1")
	header.Set("Content-Length", "0")
	header.Set("Authorization", "Bearer x")
	gen := httpx.NewRequestGenerator(header, bufioReaderFromEmptyBody(), 1<<20)

	var got *httpx.Response
	r.DispatchHTTP(gen, func(resp *httpx.Response) { got = resp })
	require.NotNil(t, got)
	assert.Equal(t, 200, got.Status)
}

func TestDispatch_PreflightSynthesis(t *testing.T) {
	r := router.New(discardLogger())
	r.EnablePreflights(router.DefaultPreflightConfig)
	require.NoError(t, r.Add(http.MethodGet, `^/widgets$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "ok"})
	}))
	require.NoError(t, r.Add(http.MethodPost, `^/widgets$`, func(*httpx.Request) *httpx.Response {
		return httpx.Ok(&httpx.StringBody{Data: "created"})
	}))

	resp := dispatch(t, r, http.MethodOptions, "/widgets")
	assert.Equal(t, 200, resp.Status)
	allow := resp.Get("Access-Control-Allow-Methods")
	assert.Contains(t, allow, "GET")
	assert.Contains(t, allow, "POST")
}

func TestDispatch_RedirectEndpoint(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.AddRedirect("/old", "/new", 301))

	resp := dispatch(t, r, http.MethodGet, "/old")
	assert.Equal(t, 301, resp.Status)
	assert.Equal(t, "/new", resp.Get("Location"))
}

func TestDispatch_FileServing(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("hello"), 0o644))

	r := router.New(discardLogger())
	require.NoError(t, r.AddFileServing("/static", dir, nil))

	resp := dispatch(t, r, http.MethodGet, "/static/index.html")
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, int64(5), resp.Body.Size())
}

func TestDispatch_FileServingRejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	r := router.New(discardLogger())
	require.NoError(t, r.AddFileServing("/static", dir, nil))

	resp := dispatch(t, r, http.MethodGet, "/static/../secret")
	assert.Equal(t, 400, resp.Status)
}

func TestDispatch_NoMatchReturns400(t *testing.T) {
	r := router.New(discardLogger())
	resp := dispatch(t, r, http.MethodGet, "/nowhere")
	assert.Equal(t, 400, resp.Status)
}

func TestDispatch_HandlerPanicBecomes500(t *testing.T) {
	r := router.New(discardLogger())
	require.NoError(t, r.Add(http.MethodGet, `^/boom$`, func(*httpx.Request) *httpx.Response {
		panic("kaboom")
	}))

	resp := dispatch(t, r, http.MethodGet, "/boom")
	assert.Equal(t, 500, resp.Status)
}

func TestAddSubrouter_RejectsBadPrefix(t *testing.T) {
	root := router.New(discardLogger())
	sub := router.New(discardLogger())
	assert.ErrorIs(t, root.AddSubrouter("no-leading-slash", sub), router.ErrInvalidSubrouterPrefix)
}

func TestAddSubrouter_RejectsCycle(t *testing.T) {
	root := router.New(discardLogger())
	sub := router.New(discardLogger())
	require.NoError(t, root.AddSubrouter("/api", sub))
	assert.ErrorIs(t, sub.AddSubrouter("/back", root), router.ErrSubrouterCycle)
}
