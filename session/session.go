// Package session implements server-side session state on top of a
// random, unguessable id carried in a cookie — the stateful counterpart
// to the stateless bearer tokens policy.JWT issues. A Manager resolves
// the cookie on incoming requests and owns the Set-Cookie lifecycle on
// the way out; a Store persists the session data itself, in memory or
// in Postgres (see the storepg subpackage).
package session

import (
	"context"
	"time"

	"github.com/corsair-io/corsair/httpx"
)

// CookieName is the default name Manager uses for the session cookie.
const CookieName = "sessionId"

// Session is the data a Store persists and a Manager hands back to
// application code after resolving a request's cookie.
type Session struct {
	ID        string
	Data      map[string]string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether s had already expired as of now.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store persists sessions. Implementations must treat ErrNotFound as the
// not-found sentinel so Manager can distinguish it from transport errors.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, newExpiry time.Time) error
}

// Manager binds a Store to a cookie name and a fixed session lifetime.
type Manager struct {
	store      Store
	ttl        time.Duration
	cookieName string
}

// NewManager builds a Manager. cookieName defaults to CookieName when
// empty.
func NewManager(store Store, ttl time.Duration, cookieName string) *Manager {
	if cookieName == "" {
		cookieName = CookieName
	}
	return &Manager{store: store, ttl: ttl, cookieName: cookieName}
}

// Start creates a new session and returns the cookie the caller must set
// on its response via httpx.Response.SetCookie.
func (m *Manager) Start(ctx context.Context, data map[string]string) (*Session, httpx.Cookie, error) {
	id, err := NewID()
	if err != nil {
		return nil, httpx.Cookie{}, err
	}

	now := time.Now()
	s := &Session{
		ID:        id,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, httpx.Cookie{}, err
	}

	cookie := httpx.SessionCookie(m.cookieName, id)
	cookie.MaxAge = int(m.ttl.Seconds())
	return s, cookie, nil
}

// Resolve reads the session cookie off header and loads the session it
// names. An expired session is deleted and reported as ErrExpired rather
// than silently treated as missing, so callers can tell "never had a
// session" apart from "had one, but it lapsed".
func (m *Manager) Resolve(ctx context.Context, header *httpx.Header) (*Session, error) {
	id, ok := header.Cookie(m.cookieName)
	if !ok || id == "" {
		return nil, ErrNoSession
	}

	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.Expired(time.Now()) {
		_ = m.store.Delete(ctx, id)
		return nil, ErrExpired
	}
	return s, nil
}

// Touch extends a session's expiry by the manager's configured ttl.
func (m *Manager) Touch(ctx context.Context, id string) error {
	return m.store.Touch(ctx, id, time.Now().Add(m.ttl))
}

// Destroy removes a session and returns the cookie that clears it
// client-side (a negative Max-Age, rendered as Max-Age=0 to tell the
// browser to drop it immediately).
func (m *Manager) Destroy(ctx context.Context, id string) (httpx.Cookie, error) {
	if err := m.store.Delete(ctx, id); err != nil {
		return httpx.Cookie{}, err
	}
	cookie := httpx.SessionCookie(m.cookieName, "")
	cookie.MaxAge = -1
	return cookie, nil
}
