package httpx_test

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/corsair-io/corsair/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedirect_ValidatesStatus(t *testing.T) {
	resp, err := httpx.NewRedirect(http.StatusPermanentRedirect, "/new")
	require.NoError(t, err)
	assert.Equal(t, "/new", resp.Get("Location"))

	_, err = httpx.NewRedirect(200, "/new")
	assert.ErrorIs(t, err, httpx.ErrInvalidRedirectStatus)

	_, err = httpx.NewRedirect(400, "/new")
	assert.ErrorIs(t, err, httpx.ErrInvalidRedirectStatus)
}

func TestFile_RejectsPathEscape(t *testing.T) {
	dir := t.TempDir()
	_, err := httpx.File(dir, "../etc/passwd")
	assert.ErrorIs(t, err, httpx.ErrPathEscape)
}

func TestFile_NotFoundForMissingFile(t *testing.T) {
	dir := t.TempDir()
	resp, err := httpx.File(dir, "missing.txt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestFile_ServesRegularFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))

	resp, err := httpx.File(dir, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, int64(2), resp.Body.Size())
}

func TestPreparePayload_SetsContentLength(t *testing.T) {
	resp := httpx.Ok(&httpx.StringBody{Data: "hello"})
	resp.PreparePayload()
	assert.Equal(t, "5", resp.Get("Content-Length"))
}
