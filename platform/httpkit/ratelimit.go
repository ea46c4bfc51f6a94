package httpkit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"leadflow_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"
)

const (
	limiterEntries = 10_000
	limiterIdle    = 10 * time.Minute
)

// IPRateLimiter keeps one token bucket per client IP. Buckets expire after
// limiterIdle; a recreated bucket starts full, which is what an idle bucket
// would have refilled to anyway.
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters *expirable.LRU[string, *rate.Limiter]
	limit    rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a limiter allowing r requests per second per IP
// with the given burst.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: expirable.NewLRU[string, *rate.Limiter](limiterEntries, nil, limiterIdle),
		limit:    r,
		burst:    burst,
		log:      log,
	}
}

// NewCaptureRateLimiter creates the limiter for the public lead capture
// webhook: 30 requests per minute per IP, burst of 10.
func NewCaptureRateLimiter(log *logger.Logger) *IPRateLimiter {
	return NewIPRateLimiter(rate.Limit(30.0/60.0), 10, log)
}

// Allow reports whether a request from ip may proceed now.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	limiter, ok := i.limiters.Get(ip)
	if !ok {
		limiter = rate.NewLimiter(i.limit, i.burst)
		i.limiters.Add(ip, limiter)
	}
	i.mu.Unlock()
	return limiter.Allow()
}

// RateLimit rejects requests over the limit with 429 and a Retry-After hint.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if i.Allow(ip) {
			c.Next()
			return
		}

		if i.log != nil {
			i.log.RateLimitExceeded(ip, c.FullPath())
		}
		c.Header("Retry-After", strconv.Itoa(i.retryAfterSeconds()))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
	}
}

func (i *IPRateLimiter) retryAfterSeconds() int {
	if i.limit <= 0 || i.limit == rate.Inf {
		return 60
	}
	return int(math.Ceil(1 / float64(i.limit)))
}
