package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KindRateLimited marks a request refused by the
// upstream limiter.
const KindRateLimited = "RateLimited"

const (
	defaultUpstreamEvery = 2 * time.Second
	defaultUpstreamBurst = 3
)

// Option configures NewHandler.
type Option func(*handler)

// WithUpstreamRate limits, per project, the requests that
// reach the git remote or hosting provider (sync and
// pull request). A zero limit disables limiting.
func WithUpstreamRate(limit rate.Limit, burst int) Option {
	return func(h *handler) {
		h.upstream = newKeyedLimiter(limit, burst)
	}
}

// keyedLimiter holds one token bucket per key.
type keyedLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newKeyedLimiter(limit rate.Limit, burst int) *keyedLimiter {
	return &keyedLimiter{
		limit:    limit,
		burst:    burst,
		limiters: map[string]*rate.Limiter{},
	}
}

func (k *keyedLimiter) allow(key string) bool {
	if k == nil || k.limit == 0 {
		return true
	}

	k.mu.Lock()
	l, ok := k.limiters[key]
	if !ok {
		l = rate.NewLimiter(k.limit, k.burst)
		k.limiters[key] = l
	}
	k.mu.Unlock()

	return l.Allow()
}

// limitUpstream refuses a request once the project
// exhausted its upstream budget.
func (h *handler) limitUpstream(c *gin.Context) {
	if h.upstream.allow(c.Param("project")) {
		c.Next()

		return
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, errorBody{
		Error: "too many upstream requests for project",
		Kind:  KindRateLimited,
	})
}
