package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"alertfilter/util/goroutine"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	rateLimiterIdleTTL         = time.Hour
	rateLimiterCleanupInterval = 10 * time.Minute
)

// rateLimiterEntry holds a rate limiter with last seen time
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	limiters map[string]*rateLimiterEntry
	mu       sync.Mutex
	logger   *zap.SugaredLogger

	stopCh    chan struct{}
	stopOnce  sync.Once
	cleanupWg sync.WaitGroup
}

// NewRateLimiter creates a limiter allowing rps requests per second per key
// with the given burst, and starts its cleanup goroutine.
func NewRateLimiter(rps, burst int, logger *zap.SugaredLogger) *RateLimiter {
	rl := &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rateLimiterEntry),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}

	goroutine.Go(&rl.cleanupWg, "rate-limiter-cleanup", logger, rl.cleanup)
	return rl
}

// Allow reports whether a request from key may proceed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	entry, exists := rl.limiters[key]
	if !exists {
		entry = &rateLimiterEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	limiter := entry.limiter
	rl.mu.Unlock()

	return limiter.Allow()
}

// cleanup periodically removes inactive limiters to bound memory
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rateLimiterCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now())
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	evicted := 0
	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > rateLimiterIdleTTL {
			delete(rl.limiters, key)
			evicted++
		}
	}
	if evicted > 0 {
		rl.logger.Debugw("Evicted idle rate limiters", "count", evicted)
	}
	return evicted
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
	rl.cleanupWg.Wait()
}

// clientKey identifies the client by remote IP
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware provides rate limiting per client IP
func (a *API) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.rateLimiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "Too many requests", nil, nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
