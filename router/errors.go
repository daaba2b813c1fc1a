package router

import "errors"

var (
	// ErrInvalidSubrouterPrefix guards AddSubrouter's invariant: the
	// prefix must be non-empty and start with "/".
	ErrInvalidSubrouterPrefix = errors.New("router: sub-router prefix must be non-empty and start with '/'")

	// ErrInvalidPattern wraps a regexp compile failure from Add/AddCapturing.
	ErrInvalidPattern = errors.New("router: invalid route pattern")

	// ErrNilHandler is returned when Add/AddCapturing is given a nil handler.
	ErrNilHandler = errors.New("router: handler must not be nil")

	// ErrInvalidFileServingPrefix guards AddFileServing's invariant.
	ErrInvalidFileServingPrefix = errors.New("router: file-serving prefix must be non-empty and start with '/'")

	// ErrNoWebSocketEndpoint is returned by DispatchWebSocket when no
	// endpoint (in this router or any sub-router) matches the resource.
	ErrNoWebSocketEndpoint = errors.New("router: no websocket endpoint matches resource")

	// ErrNilPolicy is returned by AddPolicy for a nil PolicyFunc.
	ErrNilPolicy = errors.New("router: policy function must not be nil")

	// ErrSubrouterCycle is returned by AddSubrouter if sub is an
	// ancestor of the router it is being added to, which would violate
	// the strict-tree ownership invariant (spec.md §3).
	ErrSubrouterCycle = errors.New("router: adding this sub-router would create a cycle")
)
