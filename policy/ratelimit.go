package policy

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corsair-io/corsair/httpx"
	"github.com/corsair-io/corsair/router"
)

// RateLimiter hands out one token-bucket limiter per client key (usually
// the remote address) and evicts limiters that have gone quiet, so a
// long-running server doesn't accumulate one bucket per IP forever.
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter allowing perSecond requests per client
// key, with a burst of burst, evicting clients idle longer than idleTTL.
func NewRateLimiter(perSecond float64, burst int, idleTTL time.Duration) *RateLimiter {
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		idleTTL:  idleTTL,
	}
}

// Allow reports whether the client identified by key may proceed, and
// opportunistically evicts idle entries while it holds the lock.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for k, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.idleTTL {
			delete(rl.visitors, k)
		}
	}

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.Allow()
}

// Policy returns a router.PolicyFunc keying each client by the value
// keyOf extracts from the request header (typically a remote-address
// field set by whatever sits in front of corsair).
func (rl *RateLimiter) Policy(keyOf func(h *httpx.Header) string) router.PolicyFunc {
	return func(h *httpx.Header) *httpx.Response {
		if rl.Allow(keyOf(h)) {
			return nil
		}
		resp := httpx.NewResponse(429)
		resp.Body = &httpx.StringBody{Data: `{"error":{"code":"rate_limited","message":"too many requests"}}`}
		resp.Set("Content-Type", "application/json")
		resp.Set("Retry-After", "1")
		return resp
	}
}
