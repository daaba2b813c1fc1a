package router

import (
	"path/filepath"
	"regexp"

	"github.com/corsair-io/corsair/httpx"
)

// HandlerFunc answers a fully-materialized request (header and body both
// available) with a response.
type HandlerFunc func(req *httpx.Request) *httpx.Response

// CapturingHandlerFunc is HandlerFunc plus the regex capture groups a
// RegexEndpoint's pattern matched against the request target.
type CapturingHandlerFunc func(req *httpx.Request, captures []string) *httpx.Response

// Endpoint is anything a Router can dispatch a fully-parsed header to: it
// decides whether it wants this request, which RequestFilter to read the
// body with, and how to answer once the body is ready.
type Endpoint interface {
	Matches(h *httpx.Header) bool
	Filter() httpx.RequestFilter
	Handle(req *httpx.Request) *httpx.Response
}

// RegexEndpoint matches a method and a regular expression against the
// request target, the spec.md §4.6 "regex route". The regex must match
// the full target (anchored, like std::regex_match), not merely a
// substring of it.
type RegexEndpoint struct {
	Method    string
	Pattern   *regexp.Regexp
	Preflight *PreflightConfig

	handler CapturingHandlerFunc
	filter  httpx.RequestFilter
}

// MatchesResource reports whether the target matches Pattern, ignoring
// Method — used for CORS preflight synthesis, which must enumerate every
// method bound to a resource regardless of which one OPTIONS itself is.
func (e *RegexEndpoint) MatchesResource(h *httpx.Header) bool {
	return fullMatch(e.Pattern, h.Target)
}

func (e *RegexEndpoint) Matches(h *httpx.Header) bool {
	return h.Method == e.Method && e.MatchesResource(h)
}

func (e *RegexEndpoint) Filter() httpx.RequestFilter { return e.filter }

func (e *RegexEndpoint) Handle(req *httpx.Request) *httpx.Response {
	captures := e.Pattern.FindStringSubmatch(req.Header.Target)
	var groups []string
	if len(captures) > 1 {
		groups = captures[1:]
	}
	return e.handler(req, groups)
}

// fullMatch reports whether pattern matches the entire string, the Go
// equivalent of std::regex_match (as opposed to regexp.MatchString's
// leftmost-partial semantics).
func fullMatch(pattern *regexp.Regexp, s string) bool {
	loc := pattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// RedirectEndpoint answers any request for Old with a redirect to New.
type RedirectEndpoint struct {
	Old    string
	New    string
	Status int
}

func (e *RedirectEndpoint) Matches(h *httpx.Header) bool {
	u, err := h.URI()
	if err != nil {
		return false
	}
	return u.ResourceString() == e.Old
}

func (e *RedirectEndpoint) Filter() httpx.RequestFilter { return httpx.DefaultRequestFilter }

func (e *RedirectEndpoint) Handle(*httpx.Request) *httpx.Response {
	resp, err := httpx.NewRedirect(e.Status, e.New)
	if err != nil {
		return httpx.ServerError("invalid redirect configuration")
	}
	return resp
}

// FileEndpoint serves files rooted at BasePath under the resource prefix
// ResourcePrefix, the spec.md §4.6 "file serving route". Method is
// implicitly GET.
type FileEndpoint struct {
	ResourcePrefix string
	BasePath       string
	CacheControl   func(rel string) string
}

func (e *FileEndpoint) Matches(h *httpx.Header) bool {
	if h.Method != "GET" {
		return false
	}
	u, err := h.URI()
	if err != nil {
		return false
	}
	return u.ResourceStartsWith(e.ResourcePrefix)
}

func (e *FileEndpoint) Filter() httpx.RequestFilter { return httpx.DefaultRequestFilter }

func (e *FileEndpoint) Handle(req *httpx.Request) *httpx.Response {
	u, err := req.Header.URI()
	if err != nil {
		return httpx.BadRequest("illegal request target")
	}
	rel := u.ChopResource(e.ResourcePrefix).ResourceString()
	rel = filepath.ToSlash(rel)

	resp, err := httpx.File(e.BasePath, rel)
	if err != nil {
		return httpx.BadRequest("illegal request target")
	}
	if e.CacheControl != nil {
		if cc := e.CacheControl(rel); cc != "" {
			resp.Set("Cache-Control", cc)
		}
	}
	return resp
}

// WebSocketEndpoint binds a resource pattern to a handler that takes over
// an upgraded connection. Unlike RegexEndpoint it is dispatched through
// DispatchWebSocket, never through the ordinary HTTP endpoint list — an
// upgrade request never reaches Filter/Handle.
type WebSocketEndpoint struct {
	Pattern *regexp.Regexp
	Handler func(h *httpx.Header, conn WSConn)
}

func (e *WebSocketEndpoint) matchesResource(h *httpx.Header) bool {
	return fullMatch(e.Pattern, h.Target)
}
