package router

import (
	"strconv"
	"strings"

	"github.com/corsair-io/corsair/httpx"
)

// PreflightConfig controls the CORS preflight response a Router
// synthesizes for an OPTIONS request against a resource some other method
// is bound to (spec.md §4.6's "policy plugin point ... additionally used
// to synthesize CORS preflight responses").
type PreflightConfig struct {
	AllowOrigin  string
	AllowHeaders string
	MaxAgeSecs   int
}

// DefaultPreflightConfig is permissive enough for local development and
// explicit enough that a production router is expected to override it.
var DefaultPreflightConfig = PreflightConfig{
	AllowOrigin:  "*",
	AllowHeaders: "Content-Type, Authorization",
	MaxAgeSecs:   600,
}

func buildPreflightResponse(methods []string, cfg PreflightConfig) *httpx.Response {
	resp := httpx.NewResponse(200)
	resp.Set("Access-Control-Allow-Origin", cfg.AllowOrigin)
	resp.Set("Access-Control-Allow-Methods", strings.Join(methods, ", "))
	if cfg.AllowHeaders != "" {
		resp.Set("Access-Control-Allow-Headers", cfg.AllowHeaders)
	}
	if cfg.MaxAgeSecs > 0 {
		resp.Set("Access-Control-Max-Age", strconv.Itoa(cfg.MaxAgeSecs))
	}
	return resp
}
