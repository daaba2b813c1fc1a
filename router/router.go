// Package router implements corsair's request dispatch tree: a Router
// holds endpoints, policies and sub-routers, and resolves a parsed request
// header to a response through the fixed five-step algorithm spec.md §4.6
// describes — sub-router delegation, policy gate, CORS preflight
// synthesis, endpoint match, and a 400 fallthrough.
package router

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/corsair-io/corsair/httpx"
)

// ConnHandle is how a Router hands a finished response back to whatever
// owns the connection. It is a plain closure rather than a reference
// counted handle object: the closure itself, captured by the connection's
// Serve loop, is the strong reference keeping that connection alive until
// the response is sent — Go's garbage collector does the bookkeeping
// spec.md's connection_handle does by hand.
type ConnHandle func(*httpx.Response)

type subrouterEntry struct {
	prefix string
	router *Router
}

// Router dispatches parsed HTTP headers to endpoints, and parsed WebSocket
// upgrade requests to WebSocket endpoints. A zero Router is not usable;
// construct one with New. A Router does no locking: the Add* methods
// must not run concurrently with DispatchHTTP or DispatchWebSocket.
type Router struct {
	logger       *slog.Logger
	serverString string

	generatePreflights bool
	defaultPreflight   PreflightConfig

	subrouters []subrouterEntry
	policies   []policyEntry
	endpoints  []Endpoint
	wsEndpoint []*WebSocketEndpoint
}

// New builds an empty Router logging through logger.
func New(logger *slog.Logger) *Router {
	return &Router{logger: logger, defaultPreflight: DefaultPreflightConfig}
}

// SetServerString sets the value written into every response's Server
// field, cascading to every sub-router already attached (and to any
// attached later, via AddSubrouter).
func (r *Router) SetServerString(s string) {
	r.serverString = s
	for _, sub := range r.subrouters {
		sub.router.SetServerString(s)
	}
}

// EnablePreflights turns on CORS preflight synthesis for OPTIONS requests
// against any resource this router (not its sub-routers) has an endpoint
// bound to, using cfg unless a specific endpoint names its own via
// AddWithPreflight.
func (r *Router) EnablePreflights(cfg PreflightConfig) {
	r.generatePreflights = true
	r.defaultPreflight = cfg
}

// AddSubrouter delegates every request whose resource starts with prefix
// to sub, stripping prefix from the target before sub sees it. sub
// inherits the current server string immediately; later changes to this
// router's server string cascade to sub too.
func (r *Router) AddSubrouter(prefix string, sub *Router) error {
	if prefix == "" || prefix[0] != '/' {
		return ErrInvalidSubrouterPrefix
	}
	if sub == r || sub.ownsAncestor(r) {
		return ErrSubrouterCycle
	}

	sub.SetServerString(r.serverString)
	if r.logger != nil {
		sub.logger = r.logger.With("router", prefix)
	}
	r.subrouters = append(r.subrouters, subrouterEntry{prefix: prefix, router: sub})
	return nil
}

func (r *Router) ownsAncestor(candidate *Router) bool {
	for _, sub := range r.subrouters {
		if sub.router == candidate || sub.router.ownsAncestor(candidate) {
			return true
		}
	}
	return false
}

// Add registers a regex endpoint whose handler ignores capture groups.
func (r *Router) Add(method, pattern string, handler HandlerFunc) error {
	if handler == nil {
		return ErrNilHandler
	}
	return r.AddCapturing(method, pattern, func(req *httpx.Request, _ []string) *httpx.Response {
		return handler(req)
	})
}

// AddCapturing registers a regex endpoint whose handler receives the
// pattern's capture groups alongside the request.
func (r *Router) AddCapturing(method, pattern string, handler CapturingHandlerFunc) error {
	return r.addRegex(method, pattern, httpx.DefaultRequestFilter, handler, nil)
}

// AddWithFilter is AddCapturing with an explicit RequestFilter, for
// endpoints that need to stream the body to disk or otherwise control how
// it is materialized (spec.md §4.3's body-filter protocol).
func (r *Router) AddWithFilter(method, pattern string, filter httpx.RequestFilter, handler CapturingHandlerFunc) error {
	return r.addRegex(method, pattern, filter, handler, nil)
}

// AddWithPreflight is AddCapturing plus a per-endpoint PreflightConfig,
// used when one resource's CORS answer must differ from the router's
// default (e.g. a public read endpoint alongside an authenticated one).
func (r *Router) AddWithPreflight(method, pattern string, handler CapturingHandlerFunc, cfg PreflightConfig) error {
	return r.addRegex(method, pattern, httpx.DefaultRequestFilter, handler, &cfg)
}

func (r *Router) addRegex(method, pattern string, filter httpx.RequestFilter, handler CapturingHandlerFunc, preflight *PreflightConfig) error {
	if handler == nil {
		return ErrNilHandler
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	r.endpoints = append(r.endpoints, &RegexEndpoint{
		Method:    method,
		Pattern:   re,
		Preflight: preflight,
		handler:   handler,
		filter:    filter,
	})
	return nil
}

// AddRedirect registers a redirect from old to new, answered with status
// (which must be a 3xx redirect status, per httpx.NewRedirect).
func (r *Router) AddRedirect(old, new string, status int) error {
	if _, err := httpx.NewRedirect(status, new); err != nil {
		return err
	}
	r.endpoints = append(r.endpoints, &RedirectEndpoint{Old: old, New: new, Status: status})
	return nil
}

// AddFileServing registers a GET file-serving endpoint rooted at basePath,
// reachable under resourcePrefix. cacheControl may be nil.
func (r *Router) AddFileServing(resourcePrefix, basePath string, cacheControl func(rel string) string) error {
	if resourcePrefix == "" || resourcePrefix[0] != '/' {
		return ErrInvalidFileServingPrefix
	}
	r.endpoints = append(r.endpoints, &FileEndpoint{
		ResourcePrefix: resourcePrefix,
		BasePath:       basePath,
		CacheControl:   cacheControl,
	})
	return nil
}

// AddWebSocket registers a WebSocket endpoint whose resource target fully
// matches pattern.
func (r *Router) AddWebSocket(pattern string, handler func(h *httpx.Header, conn WSConn)) error {
	if handler == nil {
		return ErrNilHandler
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	r.wsEndpoint = append(r.wsEndpoint, &WebSocketEndpoint{Pattern: re, Handler: handler})
	return nil
}

// AddPolicy registers a cross-cutting check against every request whose
// resource matches pattern, evaluated before endpoint matching (and before
// preflight synthesis).
func (r *Router) AddPolicy(pattern string, fn PolicyFunc) error {
	if fn == nil {
		return ErrNilPolicy
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPattern, err)
	}
	r.policies = append(r.policies, policyEntry{pattern: re, fn: fn})
	return nil
}
