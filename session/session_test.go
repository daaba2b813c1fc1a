package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/session"
)

func TestNewID_ProducesDistinctFixedLengthIDs(t *testing.T) {
	a, err := session.NewID()
	require.NoError(t, err)
	b, err := session.NewID()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestManager_StartThenResolve(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour, "")

	sess, cookie, err := mgr.Start(context.Background(), map[string]string{"user": "amy"})
	require.NoError(t, err)
	assert.Equal(t, sess.ID, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	header := httpx.NewHeader("GET", "/", "HTTP/1.1")
	header.Set("Cookie", cookie.Name+"="+cookie.Value)

	got, err := mgr.Resolve(context.Background(), header)
	require.NoError(t, err)
	assert.Equal(t, "amy", got.Data["user"])
}

func TestManager_ResolveWithNoCookieReturnsErrNoSession(t *testing.T) {
	mgr := session.NewManager(session.NewMemoryStore(), time.Hour, "")
	header := httpx.NewHeader("GET", "/", "HTTP/1.1")

	_, err := mgr.Resolve(context.Background(), header)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestManager_ResolveExpiredSessionDeletesAndReturnsErrExpired(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, -time.Second, "")

	sess, cookie, err := mgr.Start(context.Background(), nil)
	require.NoError(t, err)

	header := httpx.NewHeader("GET", "/", "HTTP/1.1")
	header.Set("Cookie", cookie.Name+"="+cookie.Value)

	_, err = mgr.Resolve(context.Background(), header)
	assert.ErrorIs(t, err, session.ErrExpired)

	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestManager_Destroy(t *testing.T) {
	store := session.NewMemoryStore()
	mgr := session.NewManager(store, time.Hour, "")

	sess, _, err := mgr.Start(context.Background(), nil)
	require.NoError(t, err)

	cookie, err := mgr.Destroy(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "", cookie.Value)

	_, err = store.Get(context.Background(), sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
