package httpx

import (
	"bufio"
	"fmt"
	"io"
	"sync/atomic"
)

// RequestFilter lets a handler pick a request's body storage after
// inspecting its header but before any body bytes are read. Choose picks
// the BodyKind; Setup (optional) initializes storage for that kind (e.g.
// opening a destination file). A nil Setup gets the zero-value storage
// for the chosen kind via NewBody.
type RequestFilter struct {
	Choose func(h *Header) BodyKind
	Setup  func(h *Header, kind BodyKind) (Body, error)
}

// DefaultRequestFilter buffers every body as a string, the filter used
// when an endpoint declares none of its own.
var DefaultRequestFilter = RequestFilter{
	Choose: func(*Header) BodyKind { return BodyKindString },
}

// RequestGenerator exposes a request's header synchronously and its body
// asynchronously: the HTTP connection FSM parses the header, then hands
// this to the router without reading a single body byte. Body may be
// called at most once.
type RequestGenerator struct {
	header       *Header
	reader       *bufio.Reader
	maxBodyBytes int64
	consumed     atomic.Bool
}

// NewRequestGenerator wraps a parsed header and the buffered reader
// positioned right after the header's terminating blank line.
func NewRequestGenerator(header *Header, reader *bufio.Reader, maxBodyBytes int64) *RequestGenerator {
	return &RequestGenerator{header: header, reader: reader, maxBodyBytes: maxBodyBytes}
}

// Header returns the immutable parsed header.
func (g *RequestGenerator) Header() *Header { return g.header }

// Body selects a body type via filter, reads the body bytes into it, and
// delivers the resulting Request to onDone. Calling Body a second time
// on the same generator panics with ErrBodyAlreadyConsumed.
func (g *RequestGenerator) Body(filter RequestFilter, onDone func(*Request, error)) {
	if !g.consumed.CompareAndSwap(false, true) {
		panic(ErrBodyAlreadyConsumed)
	}

	kind := BodyKindString
	if filter.Choose != nil {
		kind = filter.Choose(g.header)
	}

	contentLength, _ := g.header.ContentLength()
	if contentLength > g.maxBodyBytes {
		onDone(nil, fmt.Errorf("%w: %d bytes declared, limit %d", ErrBodyTooLarge, contentLength, g.maxBodyBytes))
		return
	}

	var body Body
	var err error
	if filter.Setup != nil {
		body, err = filter.Setup(g.header, kind)
	} else {
		body, err = NewBody(kind)
	}
	if err != nil {
		onDone(nil, err)
		return
	}

	fb, ok := body.(fillable)
	if !ok {
		onDone(nil, fmt.Errorf("httpx: body of kind %s does not support filling", kind))
		return
	}

	if contentLength > 0 {
		if err := fb.fill(g.reader, contentLength); err != nil && err != io.EOF {
			onDone(nil, err)
			return
		}
	}

	onDone(&Request{Header: g.header, Body: body}, nil)
}

// ---- client-side mirror ----

// ResponseFilter is the client-side dual of RequestFilter: given a
// response header, BodyFor picks the body kind (possibly from a set the
// filter supports), and SetupBody initializes storage for it.
type ResponseFilter struct {
	BodyFor   func(h *Header) BodyKind
	SetupBody func(h *Header, kind BodyKind) (Body, error)
}

// DefaultResponseFilter buffers every response body as a string.
var DefaultResponseFilter = ResponseFilter{
	BodyFor: func(*Header) BodyKind { return BodyKindString },
}

// ResponseGenerator is RequestGenerator's client-side dual: it exposes a
// received response header synchronously, then materializes the body
// according to a ResponseFilter.
type ResponseGenerator struct {
	header       *Header
	reader       *bufio.Reader
	maxBodyBytes int64
	consumed     atomic.Bool
}

// NewResponseGenerator wraps a parsed response header and the buffered
// reader positioned after it.
func NewResponseGenerator(header *Header, reader *bufio.Reader, maxBodyBytes int64) *ResponseGenerator {
	return &ResponseGenerator{header: header, reader: reader, maxBodyBytes: maxBodyBytes}
}

// Header returns the received response header.
func (g *ResponseGenerator) Header() *Header { return g.header }

// Body mirrors RequestGenerator.Body for the client side.
func (g *ResponseGenerator) Body(filter ResponseFilter, onDone func(*Request, error)) {
	if !g.consumed.CompareAndSwap(false, true) {
		panic(ErrBodyAlreadyConsumed)
	}

	kind := BodyKindString
	if filter.BodyFor != nil {
		kind = filter.BodyFor(g.header)
	}

	contentLength, _ := g.header.ContentLength()
	if contentLength > g.maxBodyBytes {
		onDone(nil, fmt.Errorf("%w: %d bytes declared, limit %d", ErrBodyTooLarge, contentLength, g.maxBodyBytes))
		return
	}

	var body Body
	var err error
	if filter.SetupBody != nil {
		body, err = filter.SetupBody(g.header, kind)
	} else {
		body, err = NewBody(kind)
	}
	if err != nil {
		onDone(nil, err)
		return
	}

	fb, ok := body.(fillable)
	if !ok {
		onDone(nil, fmt.Errorf("httpx: body of kind %s does not support filling", kind))
		return
	}

	if contentLength > 0 {
		if err := fb.fill(g.reader, contentLength); err != nil && err != io.EOF {
			onDone(nil, err)
			return
		}
	}

	onDone(&Request{Header: g.header, Body: body}, nil)
}
