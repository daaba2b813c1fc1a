package httpx_test

import (
	"testing"

	"github.com/corsair-io/corsair/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionCookie_DefaultAttributes(t *testing.T) {
	c := httpx.SessionCookie("sessionId", "abc123")
	s := c.String()
	assert.Contains(t, s, "sessionId=abc123")
	assert.Contains(t, s, "HttpOnly")
	assert.Contains(t, s, "Secure")
	assert.Contains(t, s, "SameSite=Strict")
	assert.Contains(t, s, "Path=/")
}

func TestHeaderCookie_Lookup(t *testing.T) {
	h := httpx.NewHeader("GET", "/", "HTTP/1.1")
	h.Set("Cookie", "foo=bar; sessionId=xyz")

	v, ok := h.Cookie("sessionId")
	require.True(t, ok)
	assert.Equal(t, "xyz", v)

	_, ok2 := h.Cookie("missing")
	assert.False(t, ok2)
}
