package router

import (
	"errors"
	"log/slog"

	"github.com/corsair-io/corsair/httpx"
)

// DispatchHTTP runs the five-step algorithm against gen's header and,
// once a match is found, against its body: (1) delegate to a matching
// sub-router, stripping its prefix; (2) run policies bound to the
// resource, any one of which may short-circuit with a response; (3)
// synthesize a CORS preflight response for OPTIONS if enabled and some
// endpoint matches the resource; (4) match an endpoint by method+pattern
// and hand its body to send once materialized; (5) answer 400 if nothing
// matched. send is called exactly once, synchronously or from gen.Body's
// completion callback.
func (r *Router) DispatchHTTP(gen *httpx.RequestGenerator, send ConnHandle) {
	header := gen.Header()

	u, err := header.URI()
	if err != nil || u.ContainsDotDot() {
		r.finalize(header, httpx.BadRequest("illegal request target"), send)
		return
	}

	for _, sub := range r.subrouters {
		if !u.ResourceStartsWith(sub.prefix) {
			continue
		}
		header.Target = u.ChopResource(sub.prefix).Raw()
		sub.router.DispatchHTTP(gen, send)
		return
	}

	for _, p := range r.policies {
		resource, err := header.URI()
		if err != nil {
			break
		}
		if !p.pattern.MatchString(resource.ResourceString()) {
			continue
		}
		if resp := p.fn(header); resp != nil {
			r.finalize(header, resp, send)
			return
		}
	}

	if r.generatePreflights && header.Method == "OPTIONS" {
		if resp, ok := r.tryPreflight(header); ok {
			r.finalize(header, resp, send)
			return
		}
	}

	for _, ep := range r.endpoints {
		if !ep.Matches(header) {
			continue
		}
		gen.Body(ep.Filter(), func(req *httpx.Request, err error) {
			if err != nil {
				r.finalize(header, r.responseForBodyError(err), send)
				return
			}
			r.finalize(header, safeHandle(r.logger, ep, req), send)
		})
		return
	}

	r.finalize(header, httpx.BadRequest("no route matches "+header.Method+" "+header.Target), send)
}

func (r *Router) tryPreflight(header *httpx.Header) (*httpx.Response, bool) {
	var methods []string
	var cfg *PreflightConfig

	for _, ep := range r.endpoints {
		re, ok := ep.(*RegexEndpoint)
		if !ok || !re.MatchesResource(header) {
			continue
		}
		methods = append(methods, re.Method)
		if re.Preflight != nil {
			cfg = re.Preflight
		}
	}

	if len(methods) == 0 {
		return nil, false
	}
	if cfg == nil {
		cfg = &r.defaultPreflight
	}
	return buildPreflightResponse(methods, *cfg), true
}

func (r *Router) responseForBodyError(err error) *httpx.Response {
	if errors.Is(err, httpx.ErrBodyTooLarge) {
		resp := httpx.NewResponse(413)
		resp.Body = &httpx.StringBody{Data: err.Error()}
		return resp
	}
	if r.logger != nil {
		r.logger.Warn("router: reading request body failed", slog.String("error", err.Error()))
	}
	return httpx.ServerError("could not read request body")
}

func safeHandle(logger *slog.Logger, ep Endpoint, req *httpx.Request) (resp *httpx.Response) {
	defer func() {
		if rec := recover(); rec != nil {
			if logger != nil {
				logger.Error("router: handler panicked", slog.Any("recover", rec))
			}
			resp = httpx.ServerError("handler panicked")
		}
	}()

	resp = ep.Handle(req)
	if resp == nil {
		resp = httpx.ServerError("handler returned no response")
	}
	return resp
}

// finalize fills in the response fields every dispatched request gets
// regardless of which endpoint answered it — Server, Content-Length,
// protocol version and the keep-alive decision carried over from the
// request — then hands the response to send.
func (r *Router) finalize(header *httpx.Header, resp *httpx.Response, send ConnHandle) {
	resp.Version = header.Version
	resp.KeepAlive = !header.NeedsEOF()
	if r.serverString != "" {
		resp.Set("Server", r.serverString)
	}
	if !resp.KeepAlive {
		resp.Set("Connection", "close")
	}
	resp.PreparePayload()
	send(resp)
}

// DispatchWebSocket resolves header to a WebSocket endpoint the same
// way DispatchHTTP resolves sub-routers (delegation by resource prefix,
// stripping it as it descends), then, on a match, calls accept to
// complete the upgrade and hands the live connection to the endpoint's
// handler. accept is only ever called once a matching endpoint is found,
// so an unmatched upgrade request never touches the socket. It returns
// ErrNoWebSocketEndpoint if nothing in this router or its sub-routers
// matches.
func (r *Router) DispatchWebSocket(header *httpx.Header, accept func() (WSConn, error)) error {
	u, err := header.URI()
	if err != nil || u.ContainsDotDot() {
		return ErrNoWebSocketEndpoint
	}

	for _, sub := range r.subrouters {
		if !u.ResourceStartsWith(sub.prefix) {
			continue
		}
		header.Target = u.ChopResource(sub.prefix).Raw()
		return sub.router.DispatchWebSocket(header, accept)
	}

	for _, ep := range r.wsEndpoint {
		if !ep.matchesResource(header) {
			continue
		}
		conn, err := accept()
		if err != nil {
			return err
		}
		ep.Handler(header, conn)
		return nil
	}

	return ErrNoWebSocketEndpoint
}
