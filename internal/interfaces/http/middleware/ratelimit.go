package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/polymerlab/m2pcalc/internal/infrastructure/monitoring/prometheus"
	"github.com/polymerlab/m2pcalc/pkg/errors"
)

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate per client.
	RequestsPerSecond float64
	// BurstSize is the bucket capacity.
	BurstSize int
	// KeyFunc extracts the client key; defaults to the client IP.
	KeyFunc func(c *gin.Context) string
	// SkipPaths bypass rate limiting.
	SkipPaths []string
	// CleanupInterval is how often idle clients are forgotten.  Zero
	// disables the janitor.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns the default rate limit configuration.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 20,
		BurstSize:         40,
		SkipPaths:         []string{"/healthz", "/readyz", "/metrics"},
		CleanupInterval:   5 * time.Minute,
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ClientLimiter keeps one token bucket per client key.
type ClientLimiter struct {
	rate     rate.Limit
	burst    int
	idle     time.Duration
	mu       sync.Mutex
	visitors map[string]*visitor
	stop     chan struct{}
	once     sync.Once
}

// NewClientLimiter creates a limiter; with cleanupInterval > 0 a janitor
// drops clients idle for longer than that interval until Stop is called.
func NewClientLimiter(rps float64, burst int, cleanupInterval time.Duration) *ClientLimiter {
	l := &ClientLimiter{
		rate:     rate.Limit(rps),
		burst:    burst,
		idle:     cleanupInterval,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.cleanupLoop()
	}
	return l
}

// Allow reports whether key may proceed now, and otherwise how long it
// should wait.
func (l *ClientLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	r := v.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Len returns the number of tracked clients.
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// Stop ends the janitor goroutine.
func (l *ClientLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *ClientLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup(time.Now().Add(-l.idle))
		case <-l.stop:
			return
		}
	}
}

func (l *ClientLimiter) cleanup(threshold time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range l.visitors {
		if v.lastSeen.Before(threshold) {
			delete(l.visitors, k)
		}
	}
}

// RateLimit rejects clients that exceed their bucket with 429 and a
// Retry-After header.  m may be nil.
func RateLimit(limiter *ClientLimiter, config RateLimitConfig, m *prometheus.AppMetrics) gin.HandlerFunc {
	keyFunc := config.KeyFunc
	if keyFunc == nil {
		keyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, p := range config.SkipPaths {
		skip[p] = true
	}
	limit := strconv.Itoa(config.BurstSize)

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}
		c.Header("X-RateLimit-Limit", limit)
		ok, wait := limiter.Allow(keyFunc(c))
		if ok {
			c.Next()
			return
		}
		if m != nil {
			path := c.FullPath()
			if path == "" {
				path = "unmatched"
			}
			m.HTTPRateLimited.WithLabelValues(path).Inc()
		}
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		abortWithError(c, http.StatusTooManyRequests, errors.ErrCodeTooManyRequests.String(), "rate limit exceeded")
	}
}
