// Package htmlform is a small, explicitly-optional helper for parsing
// multipart/form-data bodies (RFC 7578). It is not wired into the router —
// a handler reads its own request body (e.g. via httpx.ReadAll) and calls
// ParseMultipart itself when it expects a form upload.
package htmlform

import (
	"bytes"
	"io"
	"mime"
	"strings"
)

// Part is one section of a multipart/form-data body.
type Part struct {
	Name        string // the form field name, from Content-Disposition
	Filename    string // present for file fields, empty otherwise
	ContentType string
	Content     []byte
}

const (
	dispositionPrefix = "Content-Disposition: "
	typePrefix        = "Content-Type: "
)

// ParseMultipart splits body into its constituent parts. It is
// deliberately lenient: a part with a malformed Content-Disposition line
// is still returned (Name left empty) rather than aborting the whole
// parse, and an unparsable part is skipped rather than failing the call
// — matching the original implementation's "return what we parsed, drop
// the rest" behavior. Only a failure to read body is returned as an
// error: a body that does not contain the boundary yields no parts and a
// nil error.
func ParseMultipart(body io.Reader, boundary string) ([]Part, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return ParseMultipartBytes(raw, boundary)
}

// ParseMultipartBytes is ParseMultipart for an already-materialized body.
func ParseMultipartBytes(body []byte, boundary string) ([]Part, error) {
	if len(body) == 0 || boundary == "" {
		return nil, nil
	}

	boundaryLine := []byte("--" + boundary + "\r\n")
	boundaryLineLast := []byte("--" + boundary + "--")

	var starts []int
	pos := 0
	for {
		idx := bytes.Index(body[pos:], boundaryLine)
		if idx < 0 {
			break
		}
		starts = append(starts, pos+idx)
		pos += idx + len(boundaryLine)
	}
	if len(starts) == 0 {
		return nil, nil
	}

	lastIdx := bytes.Index(body[starts[len(starts)-1]:], boundaryLineLast)
	if lastIdx < 0 {
		return nil, nil
	}
	starts = append(starts, starts[len(starts)-1]+lastIdx)

	var parts []Part
	for i := 0; i < len(starts)-1; i++ {
		start := starts[i] + len(boundaryLine)
		end := starts[i+1]
		if start >= end {
			continue
		}
		if p, ok := parsePart(body[start:end]); ok {
			parts = append(parts, p)
		}
	}
	return parts, nil
}

func parsePart(raw []byte) (Part, bool) {
	if len(raw) == 0 {
		return Part{}, false
	}

	var p Part
	lines := strings.Split(string(raw), "\r\n")

	consumed := 0
	for _, line := range lines {
		consumed += len(line) + 2 // +2 restores the \r\n the split stripped
		switch {
		case strings.HasPrefix(line, dispositionPrefix):
			p.Name, p.Filename = parseDisposition(strings.TrimPrefix(line, dispositionPrefix))
		case strings.HasPrefix(line, typePrefix):
			p.ContentType = strings.TrimPrefix(line, typePrefix)
		}
		if line == "" {
			break
		}
	}

	// raw ends with the trailing \r\n that precedes the next boundary line;
	// drop it along with the header block already accounted for above.
	end := len(raw) - 2
	if consumed > end {
		return Part{}, false
	}
	p.Content = raw[consumed:end]
	return p, true
}

// parseDisposition extracts the `name` and `filename` parameters from a
// Content-Disposition value. A malformed value yields two empty strings
// rather than an error, per ParseMultipart's lenient contract.
func parseDisposition(value string) (name, filename string) {
	_, params, err := mime.ParseMediaType(value)
	if err != nil {
		return "", ""
	}
	return params["name"], params["filename"]
}
