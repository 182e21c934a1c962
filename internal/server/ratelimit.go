package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupThreshold = 500
	limiterMaxIdle          = 10 * time.Minute
	rateWindow              = time.Minute
)

// limiter decides whether one more request from key fits the budget.
type limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// redisLimiter counts requests per fixed window so that every replica
// shares the budget.
type redisLimiter struct {
	client *redis.Client
	max    int
	window time.Duration
}

// Allow opens the window with SET NX EX so later requests never push the
// expiry back, then counts inside it.
func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := "ratelimit:" + key
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, redisKey, 0, l.window)
		incr = pipe.Incr(ctx, redisKey)
		return nil
	})
	if err != nil {
		return false, err
	}
	return incr.Val() <= int64(l.max), nil
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localLimiter keeps a token bucket per key in process memory.
type localLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	r       rate.Limit
	burst   int
	now     func() time.Time
}

func newLocalLimiter(perMinute int) *localLimiter {
	return &localLimiter{
		entries: make(map[string]*limiterEntry),
		r:       rate.Limit(float64(perMinute) / rateWindow.Seconds()),
		burst:   perMinute,
		now:     time.Now,
	}
}

func (l *localLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if len(l.entries) > limiterCleanupThreshold {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterMaxIdle {
				delete(l.entries, k)
			}
		}
	}
	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(l.r, l.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1), nil
}

// rateLimit keys on the authenticated player when there is one and on the
// client address otherwise. A failing limiter lets the request through.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}
		key := "ip:" + c.ClientIP()
		if claims, ok := c.Get(claimsKey); ok {
			if sc, ok := claims.(*sessionClaims); ok {
				key = "player:" + sc.Subject
			}
		}
		allowed, err := s.limiter.Allow(c.Request.Context(), key)
		if err != nil {
			s.log.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("rate limiter unavailable")
			c.Next()
			return
		}
		if !allowed {
			s.metrics.rateLimited.Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "rate_limited"})
			return
		}
		c.Next()
	}
}
