package httpx

import (
	"fmt"
	"strings"
)

// Cookie models the handful of attributes corsair's session layer needs;
// it is intentionally narrower than net/http.Cookie since corsair only
// ever emits the fixed HttpOnly/Secure/SameSite=Strict/Path=/ shape from
// spec.md §4.8 / §6.
type Cookie struct {
	Name     string
	Value    string
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite string
	MaxAge   int // seconds; 0 means session cookie (omitted)
}

// String renders the Set-Cookie field value.
func (c Cookie) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s=%s", c.Name, c.Value)
	if c.Path != "" {
		fmt.Fprintf(&b, "; Path=%s", c.Path)
	}
	switch {
	case c.MaxAge < 0:
		b.WriteString("; Max-Age=0")
	case c.MaxAge > 0:
		fmt.Fprintf(&b, "; Max-Age=%d", c.MaxAge)
	}
	if c.SameSite != "" {
		fmt.Fprintf(&b, "; SameSite=%s", c.SameSite)
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HttpOnly {
		b.WriteString("; HttpOnly")
	}
	return b.String()
}

// SetCookie appends a Set-Cookie field to resp.
func (r *Response) SetCookie(c Cookie) {
	r.Fields.Add("Set-Cookie", c.String())
}

// Cookie returns the named cookie value from a request header's Cookie
// field, and whether it was present.
func (h *Header) Cookie(name string) (string, bool) {
	raw := h.Get("Cookie")
	if raw == "" {
		return "", false
	}
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		k, v, ok := strings.Cut(part, "=")
		if ok && k == name {
			return v, true
		}
	}
	return "", false
}

// SessionCookie builds the default corsair session cookie: HttpOnly,
// Secure, SameSite=Strict, Path=/ (spec.md §4.8 / §6).
func SessionCookie(name, value string) Cookie {
	return Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: "Strict",
	}
}
