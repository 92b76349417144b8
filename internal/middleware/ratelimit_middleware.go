package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LimiterStore holds one token bucket per key.
type LimiterStore struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewLimiterStore allows perMinute requests per key with a burst of the same size.
func NewLimiterStore(perMinute int) *LimiterStore {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &LimiterStore{
		entries: make(map[string]*limiterEntry),
		limit:   rate.Every(time.Minute / time.Duration(perMinute)),
		burst:   perMinute,
		now:     time.Now,
	}
}

// Allow consumes one token for key.
func (s *LimiterStore) Allow(key string) (bool, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	e, ok := s.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.entries[key] = e
	}
	e.lastSeen = now
	r := e.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// Cleanup drops keys idle for longer than maxIdle and returns how many were dropped.
func (s *LimiterStore) Cleanup(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	n := 0
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
			n++
		}
	}
	return n
}

// CleanupJob adapts Cleanup to the worker runner.
func (s *LimiterStore) CleanupJob(maxIdle time.Duration, logger *zap.Logger) func(context.Context) error {
	return func(context.Context) error {
		if n := s.Cleanup(maxIdle); n > 0 {
			logger.Debug("Rate limiter keys dropped", zap.Int("count", n))
		}
		return nil
	}
}

// RateLimit limits each caller per scope. Callers are keyed by uid when authenticated,
// otherwise by client IP.
func RateLimit(store *LimiterStore, scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := UserID(c)
		if who == "" {
			who = "ip:" + c.ClientIP()
		}
		ok, wait := store.Allow(scope + "|" + who)
		if !ok {
			secs := int(wait.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, try again later", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}
