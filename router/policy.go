package router

import (
	"regexp"

	"github.com/corsair-io/corsair/httpx"
)

// PolicyFunc inspects a request's header before its body is read and may
// short-circuit dispatch by returning a non-nil response (401, 429, a CORS
// rejection, whatever the policy enforces). Returning nil lets dispatch
// continue to endpoint matching.
type PolicyFunc func(h *httpx.Header) *httpx.Response

type policyEntry struct {
	pattern *regexp.Regexp
	fn      PolicyFunc
}
