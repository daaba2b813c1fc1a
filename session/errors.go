package session

import "errors"

// ErrNoSession is returned by Manager.Resolve when the request carries no
// session cookie at all.
var ErrNoSession = errors.New("session: no session cookie present")

// ErrNotFound is returned by a Store when no session exists for an id.
var ErrNotFound = errors.New("session: no such session")

// ErrExpired is returned by Manager.Resolve when the stored session's
// ExpiresAt has passed; the session is deleted from the store as a side
// effect of discovering this.
var ErrExpired = errors.New("session: session has expired")
