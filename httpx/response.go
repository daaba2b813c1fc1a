package httpx

import (
	"bufio"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Request pairs a parsed Header with whichever Body variant the serving
// handler's filter chose.
type Request struct {
	Header *Header
	Body   Body
}

// Response is the outbound counterpart: status, fields, body, protocol
// version and the keep-alive flag that decides whether the connection
// stays open after this response is written.
type Response struct {
	Status    int
	Fields    http.Header
	Body      Body
	Version   string
	KeepAlive bool
}

// NewResponse builds a bare response with no body, ready for the caller
// to attach one.
func NewResponse(status int) *Response {
	return &Response{
		Status:  status,
		Fields:  make(http.Header),
		Body:    &EmptyBody{},
		Version: "HTTP/1.1",
	}
}

// Get returns the comma-joined value for a response field.
func (r *Response) Get(key string) string {
	values := r.Fields[canonicalKey(key)]
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ", ")
}

// Set replaces any existing values for key.
func (r *Response) Set(key, value string) { r.Fields.Set(key, value) }

// NeedEOF reports whether the connection must close after this response,
// mirroring Header.NeedsEOF for the outbound side.
func (r *Response) NeedEOF() bool { return !r.KeepAlive }

// PreparePayload finalizes Content-Length based on the attached body's
// size. corsair does not implement chunked transfer encoding — every
// concrete Body variant knows its size up front (string length, file
// stat, or zero), so Content-Length is always determinable without
// buffering twice.
func (r *Response) PreparePayload() {
	r.Set("Content-Length", strconv.FormatInt(r.Body.Size(), 10))
}

// WriteTo serializes the full response (status line, fields, body) onto
// w in wire format.
func (r *Response) WriteTo(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %d %s\r\n", r.Version, r.Status, http.StatusText(r.Status)); err != nil {
		return err
	}
	if err := writeFields(w, r.Fields); err != nil {
		return err
	}
	if _, err := r.Body.WriteTo(w); err != nil {
		return err
	}
	return w.Flush()
}

func canonicalKey(key string) string {
	return http.CanonicalHeaderKey(key)
}

// ---- pure response constructors (spec.md §4.9) ----

// Ok builds a 200 response with the given body.
func Ok(body Body) *Response {
	resp := NewResponse(http.StatusOK)
	resp.Body = body
	return resp
}

// BadRequest builds a 400 response whose body explains reason.
func BadRequest(reason string) *Response {
	resp := NewResponse(http.StatusBadRequest)
	resp.Body = &StringBody{Data: reason}
	return resp
}

// NotFound builds a 404 response naming the missing resource.
func NotFound(resource string) *Response {
	resp := NewResponse(http.StatusNotFound)
	resp.Body = &StringBody{Data: fmt.Sprintf("resource not found: %s", resource)}
	return resp
}

// ServerError builds a 500 response whose body is "internal server
// error: " followed by what. The router passes it only fixed
// descriptions, so a handler's panic value or error text is never leaked
// verbatim to the client (spec.md §7).
func ServerError(what string) *Response {
	resp := NewResponse(http.StatusInternalServerError)
	resp.Body = &StringBody{Data: fmt.Sprintf("internal server error: %s", what)}
	return resp
}

// NewRedirect builds a 3xx response with a Location field. status must
// be in [300, 400); anything else is a construction error, never a
// silently-accepted malformed redirect.
func NewRedirect(status int, location string) (*Response, error) {
	if status < 300 || status >= 400 {
		return nil, ErrInvalidRedirectStatus
	}
	resp := NewResponse(status)
	resp.Set("Location", location)
	resp.Body = &EmptyBody{}
	return resp, nil
}

// File builds a response serving the file at base/rel. It rejects any
// rel containing ".." (path escape), answers 404 if the resolved path is
// not a regular file, and otherwise answers 200 with a FileBody and a
// Content-Type derived from the file extension.
func File(base, rel string) (*Response, error) {
	if containsDotDotSegment(rel) {
		return nil, ErrPathEscape
	}

	full := filepath.Join(base, rel)
	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		return NotFound(rel), nil
	}

	resp := NewResponse(http.StatusOK)
	resp.Body = &FileBody{Path: full, size: info.Size()}
	if ct := mime.TypeByExtension(filepath.Ext(full)); ct != "" {
		resp.Set("Content-Type", ct)
	}
	return resp, nil
}

func containsDotDotSegment(rel string) bool {
	rel = filepath.ToSlash(rel)
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return true
		}
	}
	return false
}
