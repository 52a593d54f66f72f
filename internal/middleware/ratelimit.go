package middleware

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/time/rate"
)

var ErrRateLimited = errors.New("rate limit exceeded")

const limiterIdleTTL = 5 * time.Minute

type rateEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per caller. Anonymous requests are keyed
// by peer host.
type RateLimiter struct {
	perSecond rate.Limit
	burst     int

	mu        sync.Mutex
	visitors  map[string]*rateEntry
	lastSweep time.Time
	clockNow  func() time.Time
}

// NewRateLimiter allows perSecond requests per caller with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if perSecond <= 0 {
		perSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		visitors:  make(map[string]*rateEntry),
		clockNow:  time.Now,
	}
}

// Interceptor rejects calls over budget with CodeResourceExhausted. Install it
// after the auth interceptor so callers are known.
func (r *RateLimiter) Interceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if !r.allow(clientID(ctx, req)) {
				return nil, connect.NewError(connect.CodeResourceExhausted, ErrRateLimited)
			}
			return next(ctx, req)
		}
	}
}

func (r *RateLimiter) allow(id string) bool {
	now := r.clockNow()
	return r.obtainLimiter(id, now).AllowN(now, 1)
}

func (r *RateLimiter) obtainLimiter(id string, now time.Time) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) > limiterIdleTTL {
		for k, e := range r.visitors {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(r.visitors, k)
			}
		}
		r.lastSweep = now
	}

	entry, ok := r.visitors[id]
	if !ok {
		entry = &rateEntry{limiter: rate.NewLimiter(r.perSecond, r.burst)}
		r.visitors[id] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}

func clientID(ctx context.Context, req connect.AnyRequest) string {
	if caller := GetCaller(ctx); !caller.IsZero() {
		return "caller:" + caller.String()
	}
	addr := req.Peer().Addr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return "peer:" + addr
}
