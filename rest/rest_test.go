package rest_test

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/rest"
	"github.com/corsair-io/corsair/router"
)

type widget struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type createWidget struct {
	Name string `json:"name" validate:"required,max=50"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRouterWithWidgets(t *testing.T, store map[string]widget) *router.Router {
	t.Helper()
	r := router.New(discardLogger())
	err := rest.Bind(r, "widgets", rest.Handlers[createWidget, createWidget, widget]{
		List: func(*httpx.Request) ([]widget, error) {
			var out []widget
			for _, w := range store {
				out = append(out, w)
			}
			return out, nil
		},
		Get: func(id string, _ *httpx.Request) (widget, error) {
			w, ok := store[id]
			if !ok {
				return widget{}, rest.NewStatusError(http.StatusNotFound, 404, "no such widget")
			}
			return w, nil
		},
		Create: func(body createWidget, _ *httpx.Request) (widget, error) {
			w := widget{ID: "w1", Name: body.Name}
			store[w.ID] = w
			return w, nil
		},
	})
	require.NoError(t, err)
	return r
}

func dispatchJSON(t *testing.T, r *router.Router, method, target, body string) *httpx.Response {
	t.Helper()
	header := httpx.NewHeader(method, target, "HTTP/1.1")
	header.Set("Content-Length", strconv.Itoa(len(body)))

	var got *httpx.Response
	reader := bufio.NewReader(strings.NewReader(body))
	gen := httpx.NewRequestGenerator(header, reader, 1<<20)
	r.DispatchHTTP(gen, func(resp *httpx.Response) { got = resp })
	require.NotNil(t, got)
	return got
}

func TestRest_CreateThenGet(t *testing.T) {
	store := map[string]widget{}
	r := newRouterWithWidgets(t, store)

	resp := dispatchJSON(t, r, http.MethodPost, "/widgets", `{"name":"gear"}`)
	assert.Equal(t, http.StatusCreated, resp.Status)

	raw, err := httpx.ReadAll(resp.Body)
	require.NoError(t, err)
	var env rest.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	assert.NotNil(t, env.Data)

	resp = dispatchJSON(t, r, http.MethodGet, "/widgets/w1", "")
	assert.Equal(t, http.StatusOK, resp.Status)
}

func TestRest_CreateRejectsMissingRequiredField(t *testing.T) {
	store := map[string]widget{}
	r := newRouterWithWidgets(t, store)

	resp := dispatchJSON(t, r, http.MethodPost, "/widgets", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Status)

	raw, err := httpx.ReadAll(resp.Body)
	require.NoError(t, err)
	var env rest.Envelope
	require.NoError(t, json.Unmarshal(raw, &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, rest.CodeValidation, env.Error.Code)
}

func TestRest_GetMissingReturnsStatusError(t *testing.T) {
	store := map[string]widget{}
	r := newRouterWithWidgets(t, store)

	resp := dispatchJSON(t, r, http.MethodGet, "/widgets/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.Status)
}
