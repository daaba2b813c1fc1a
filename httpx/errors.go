package httpx

import "errors"

var (
	// ErrBodyAlreadyConsumed is raised (as a panic, not returned) when
	// RequestGenerator.Body or ResponseGenerator.Body is invoked a second
	// time on the same generator. The spec's invariant is "at most once
	// per generator" — calling it twice is a handler bug, not a runtime
	// condition a caller can sensibly recover from.
	ErrBodyAlreadyConsumed = errors.New("httpx: body already consumed")

	// ErrBodyTooLarge is the 413 condition: the declared (or actual)
	// body size exceeds the connection's configured limit.
	ErrBodyTooLarge = errors.New("httpx: body exceeds configured limit")

	// ErrMalformedHeader is returned by ReadHeader for anything that
	// doesn't parse as a request line + MIME header block.
	ErrMalformedHeader = errors.New("httpx: malformed request header")

	// ErrIllegalTarget names a request target that fails the data-model
	// invariant (empty, no leading slash, or path-escaping via "..").
	// ReadHeader does not check targets and nothing in this package
	// returns it; router.DispatchHTTP answers such a target with a 400.
	ErrIllegalTarget = errors.New("httpx: illegal request target")

	// ErrInvalidRedirectStatus guards NewRedirect's invariant.
	ErrInvalidRedirectStatus = errors.New("httpx: redirect status must be in [300, 400)")

	// ErrPathEscape is returned by File when rel escapes its base via "..".
	ErrPathEscape = errors.New("httpx: path escapes base directory")

	// ErrNoFilterStorage is returned when a request filter's Setup
	// function is nil for a body kind that requires external storage
	// (e.g. BodyKindFile needs a destination path).
	ErrNoFilterStorage = errors.New("httpx: body kind requires filter-provided storage")
)
