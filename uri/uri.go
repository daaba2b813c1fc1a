// Package uri decomposes an HTTP request target into resource segments,
// query parameters and a fragment, the way corsair/httpx needs it for
// routing and sub-router delegation.
package uri

import (
	"errors"
	"net/url"
	"strings"
)

// ErrEmptyTarget is returned when a raw request target is empty or does
// not start with a leading slash (query-only targets like "?a=b" count as
// missing a path).
var ErrEmptyTarget = errors.New("uri: empty or malformed target")

// KV is an ordered query key/value pair. Query parameters are kept ordered
// (not collapsed into a map) because a round-trip must reproduce the
// original ordering.
type KV struct {
	Key   string
	Value string
}

// URI is the lazily-decomposed view of a raw HTTP request target.
// Percent-decoding of query values happens on demand, not eagerly, so a
// URI can be constructed and compared (for routing) without paying for
// unescaping work nobody asked for.
type URI struct {
	raw      string
	resource []string
	query    string
	fragment string
}

// Parse decomposes a raw request target ("/a/b?x=1#frag") into its parts.
// It rejects empty targets and targets without a leading slash, per the
// invariant that `target` must be non-empty and rooted.
func Parse(raw string) (URI, error) {
	if raw == "" || raw[0] != '/' {
		return URI{}, ErrEmptyTarget
	}

	path := raw
	fragment := ""
	if i := strings.IndexByte(path, '#'); i >= 0 {
		fragment = path[i+1:]
		path = path[:i]
	}

	query := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		query = path[i+1:]
		path = path[:i]
	}

	segments := splitResource(path)

	return URI{
		raw:      raw,
		resource: segments,
		query:    query,
		fragment: fragment,
	}, nil
}

func splitResource(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

// Raw returns the original target string as parsed.
func (u URI) Raw() string { return u.raw }

// Resource returns the path segments (no leading/trailing empties).
func (u URI) Resource() []string { return u.resource }

// ResourceString reconstructs the path portion ("/a/b").
func (u URI) ResourceString() string {
	if len(u.resource) == 0 {
		return "/"
	}
	return "/" + strings.Join(u.resource, "/")
}

// QueryString returns the raw (still percent-encoded) query string.
func (u URI) QueryString() string { return u.query }

// Fragment returns the raw fragment (without the leading '#').
func (u URI) Fragment() string { return u.fragment }

// Query decodes the query string into ordered key/value pairs. Decoding
// happens here, on demand, rather than at Parse time.
func (u URI) Query() []KV {
	if u.query == "" {
		return nil
	}

	var out []KV
	for _, pair := range strings.Split(u.query, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		dKey, err := url.QueryUnescape(key)
		if err != nil {
			dKey = key
		}
		dValue, err := url.QueryUnescape(value)
		if err != nil {
			dValue = value
		}
		out = append(out, KV{Key: dKey, Value: dValue})
	}
	return out
}

// QueryValue returns the first decoded value for key, and whether it was
// present at all.
func (u URI) QueryValue(key string) (string, bool) {
	for _, kv := range u.Query() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// ResourceStartsWith reports whether the resource path begins with prefix
// (a "/"-rooted string), used by router sub-router delegation.
func (u URI) ResourceStartsWith(prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	full := u.ResourceString()
	if full == prefix {
		return true
	}
	return strings.HasPrefix(full, prefix+"/")
}

// ChopResource strips prefix from the front of the resource path and
// returns a new URI reflecting the remainder, reconstructing the raw
// target (keeping query/fragment intact) the way router sub-router
// delegation requires.
func (u URI) ChopResource(prefix string) URI {
	prefix = strings.TrimSuffix(prefix, "/")
	full := u.ResourceString()
	remainder := strings.TrimPrefix(full, prefix)
	if remainder == "" {
		remainder = "/"
	}
	if !strings.HasPrefix(remainder, "/") {
		remainder = "/" + remainder
	}

	next := remainder
	if u.query != "" {
		next += "?" + u.query
	}
	if u.fragment != "" {
		next += "#" + u.fragment
	}

	result, err := Parse(next)
	if err != nil {
		// remainder is always "/"-rooted by construction above.
		return URI{raw: next, resource: splitResource(remainder), query: u.query, fragment: u.fragment}
	}
	return result
}

// ContainsDotDot reports whether any resource segment is exactly "..",
// used to reject path-escaping requests (file serving, redirects).
func (u URI) ContainsDotDot() bool {
	for _, seg := range u.resource {
		if seg == ".." {
			return true
		}
	}
	return false
}
