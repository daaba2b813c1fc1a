// Package policy collects router.PolicyFunc implementations for the
// cross-cutting concerns every deployment needs at the edge: bearer-token
// authentication and per-client rate limiting.
package policy

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
)

// ErrMissingToken and ErrInvalidToken are returned by JWT.Verify so
// callers other than JWT (tests, alternate transports) can distinguish
// "no credential supplied" from "credential supplied but rejected".
var (
	ErrMissingToken = errors.New("policy: no bearer token supplied")
	ErrInvalidToken = errors.New("policy: invalid or expired token")
)

// Claims is the payload JWT mints and verifies. Subject identifies the
// authenticated principal; Scopes drives coarse-grained authorization.
type Claims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// JWT issues and verifies HS256 bearer tokens.
type JWT struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWT builds a JWT verifier/issuer signing with secret under issuer,
// minting tokens that live for ttl.
func NewJWT(secret []byte, issuer string, ttl time.Duration) *JWT {
	return &JWT{secret: secret, issuer: issuer, ttl: ttl}
}

// Issue mints a signed token for subject with the given scopes.
func (j *JWT) Issue(subject string, scopes []string) (string, error) {
	claims := Claims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(j.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// Verify parses and validates a bearer token string, returning its claims.
func (j *JWT) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// bearerToken extracts the token from an Authorization: Bearer header.
func bearerToken(h *httpx.Header) (string, bool) {
	auth := h.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", false
	}
	return strings.TrimPrefix(auth, prefix), true
}

// RequireBearer returns a router.PolicyFunc that rejects any request
// without a valid bearer token, with a 401 and a JSON error body of the
// form {"error":{"code":"unauthorized","message":...}}. Unlike the rest
// package's envelope, whose code is numeric, code here is a string.
func (j *JWT) RequireBearer() router.PolicyFunc {
	return func(h *httpx.Header) *httpx.Response {
		tok, ok := bearerToken(h)
		if !ok {
			return unauthorized("missing bearer token")
		}
		if _, err := j.Verify(tok); err != nil {
			return unauthorized("invalid or expired token")
		}
		return nil
	}
}

func unauthorized(message string) *httpx.Response {
	body := fmt.Sprintf(`{"error":{"code":"unauthorized","message":%q}}`, message)
	resp := httpx.NewResponse(401)
	resp.Body = &httpx.StringBody{Data: body}
	resp.Set("Content-Type", "application/json")
	return resp
}
