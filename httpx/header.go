package httpx

import (
	"bufio"
	"fmt"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/corsair-io/corsair/uri"
)

// Header is the immutable-after-parse view of a request's method, target,
// HTTP version and field map. Field keys are case-insensitive; repeated
// fields are concatenated with ", " on Get, matching RFC 7230 §3.2.2.
type Header struct {
	Method  string
	Target  string
	Version string
	Fields  http.Header
}

// NewHeader builds a Header for constructing outbound requests (client
// side) or tests, with an empty field map ready to populate.
func NewHeader(method, target, version string) *Header {
	return &Header{
		Method:  method,
		Target:  target,
		Version: version,
		Fields:  make(http.Header),
	}
}

// Get returns the comma-joined value for key, or "" if absent.
func (h *Header) Get(key string) string {
	values := h.Fields[textproto.CanonicalMIMEHeaderKey(key)]
	if len(values) == 0 {
		return ""
	}
	return strings.Join(values, ", ")
}

// Set replaces any existing values for key.
func (h *Header) Set(key, value string) {
	h.Fields.Set(key, value)
}

// Add appends value to key's existing values, preserving repeated-field
// semantics.
func (h *Header) Add(key, value string) {
	h.Fields.Add(key, value)
}

// URI parses Target into its resource/query/fragment decomposition.
func (h *Header) URI() (uri.URI, error) {
	return uri.Parse(h.Target)
}

// IsUpgrade reports whether this header requests a WebSocket protocol
// upgrade (RFC 6455 §4.1): a "Connection" field containing the "upgrade"
// token (case-insensitive, comma-separated list) and an "Upgrade" field
// containing "websocket".
func (h *Header) IsUpgrade() bool {
	return containsToken(h.Get("Connection"), "upgrade") &&
		containsToken(h.Get("Upgrade"), "websocket")
}

// NeedsEOF reports whether the connection carrying this request must
// close after the response is written: either an explicit
// "Connection: close", or HTTP/1.0 without an explicit keep-alive.
func (h *Header) NeedsEOF() bool {
	if containsToken(h.Get("Connection"), "close") {
		return true
	}
	if h.Version == "HTTP/1.0" {
		return !containsToken(h.Get("Connection"), "keep-alive")
	}
	return false
}

// ContentLength parses the Content-Length field; absence is reported as
// (0, false).
func (h *Header) ContentLength() (int64, bool) {
	raw := h.Get("Content-Length")
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func containsToken(field, token string) bool {
	for _, part := range strings.Split(field, ",") {
		if strings.EqualFold(strings.TrimSpace(part), token) {
			return true
		}
	}
	return false
}

// ReadHeader parses a request line and MIME-style field block off r, the
// same two-stage shape net/http's own server loop uses internally
// (request-line scan, then textproto.Reader.ReadMIMEHeader) — there is no
// third-party HTTP request-line/header parser anywhere in the example
// corpus, so this is the stdlib-grounded exception documented in
// DESIGN.md.
func ReadHeader(r *bufio.Reader) (*Header, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	method, target, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && len(mimeHeader) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	return &Header{
		Method:  method,
		Target:  target,
		Version: version,
		Fields:  http.Header(mimeHeader),
	}, nil
}

// ReadResponseHeader parses a status line and MIME-style field block off
// r — the client-side counterpart to ReadHeader. The parsed status code
// and reason phrase are kept on the same Header shape the rest of httpx
// already uses (Method holds the status code as a string, Target the
// reason phrase) so client.Controller can drive a ResponseGenerator
// exactly the way httpconn drives a RequestGenerator.
func ReadResponseHeader(r *bufio.Reader) (*Header, error) {
	tp := textproto.NewReader(r)

	line, err := tp.ReadLine()
	if err != nil {
		return nil, err
	}

	version, status, reason, err := parseStatusLine(line)
	if err != nil {
		return nil, err
	}

	mimeHeader, err := tp.ReadMIMEHeader()
	if err != nil && len(mimeHeader) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	return &Header{
		Method:  status,
		Target:  reason,
		Version: version,
		Fields:  http.Header(mimeHeader),
	}, nil
}

// StatusCode parses the status code stashed in Method by ReadResponseHeader.
func (h *Header) StatusCode() (int, error) {
	return strconv.Atoi(h.Method)
}

func parseStatusLine(line string) (version, status, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("%w: status line %q", ErrMalformedHeader, line)
	}
	version, status = parts[0], parts[1]
	if !strings.HasPrefix(version, "HTTP/") {
		return "", "", "", fmt.Errorf("%w: version %q", ErrMalformedHeader, version)
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return version, status, reason, nil
}

func parseRequestLine(line string) (method, target, version string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("%w: request line %q", ErrMalformedHeader, line)
	}

	method, target, version = parts[0], parts[1], parts[2]
	if !strings.HasPrefix(version, "HTTP/") {
		return "", "", "", fmt.Errorf("%w: version %q", ErrMalformedHeader, version)
	}

	return method, target, version, nil
}

// WriteRequestLine writes "METHOD target VERSION\r\n" followed by the
// field block and the blank line terminating it.
func (h *Header) WriteRequestLine(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, "%s %s %s\r\n", h.Method, h.Target, h.Version); err != nil {
		return err
	}
	return writeFields(w, h.Fields)
}

func writeFields(w *bufio.Writer, fields http.Header) error {
	for key, values := range fields {
		for _, v := range values {
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, v); err != nil {
				return err
			}
		}
	}
	_, err := w.WriteString("\r\n")
	return err
}
