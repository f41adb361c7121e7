package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/communitytime/allocation-api/internal/http/respond"
)

// Limiter decides whether key may spend one more request of its budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimiter counts requests per key in fixed windows for single-instance
// deployments. A key's window opens with its first request.
type RateLimiter struct {
	max    int
	window time.Duration
	mu     sync.Mutex
	store  map[string]*windowEntry
	now    func() time.Time
}

type windowEntry struct {
	start time.Time
	count int
}

// NewRateLimiter allows max requests per window for every key.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		store:  make(map[string]*windowEntry),
		now:    time.Now,
	}
}

func (r *RateLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.store[key]
	if !ok || now.Sub(entry.start) >= r.window {
		if !ok {
			r.sweep(now)
		}
		entry = &windowEntry{start: now}
		r.store[key] = entry
	}

	if entry.count >= r.max {
		return false, entry.start.Add(r.window).Sub(now), nil
	}
	entry.count++
	return true, 0, nil
}

// sweep drops keys whose window has closed. Callers hold mu.
func (r *RateLimiter) sweep(now time.Time) {
	for k, entry := range r.store {
		if now.Sub(entry.start) >= r.window {
			delete(r.store, k)
		}
	}
}

type windowCommander interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisWindowLimiter is a fixed-window counter shared across instances.
type RedisWindowLimiter struct {
	client windowCommander
	prefix string
	max    int64
	window time.Duration
}

func NewRedisWindowLimiter(client windowCommander, prefix string, max int, window time.Duration) *RedisWindowLimiter {
	return &RedisWindowLimiter{client: client, prefix: prefix, max: int64(max), window: window}
}

func (l *RedisWindowLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	slot := time.Now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%s:%d", l.prefix, key, slot)

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, 0, err
	}
	if count == 1 {
		if err := l.client.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			return true, 0, err
		}
	}
	if count <= l.max {
		return true, 0, nil
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		ttl = l.window
	}
	return false, ttl, nil
}

// LimitByKey applies limiter to requests keyed by keyFunc. Limiter errors
// let the request through.
func LimitByKey(limiter Limiter, message string, keyFunc func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	sampled := &rate.Sometimes{Interval: time.Minute}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			key, ok := keyFunc(req)
			if !ok || key == "" {
				next.ServeHTTP(w, req)
				return
			}

			allowed, retryAfter, err := limiter.Allow(req.Context(), key)
			if err != nil {
				sampled.Do(func() {
					log.Error().Err(err).Msg("rate limiter unavailable, allowing request")
				})
			}
			if !allowed {
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				respond.Error(w, http.StatusTooManyRequests, message)
				return
			}

			next.ServeHTTP(w, req)
		})
	}
}

// IPRateLimit keys the limiter by client IP.
func IPRateLimit(limiter Limiter, message string) func(http.Handler) http.Handler {
	return LimitByKey(limiter, message, func(r *http.Request) (string, bool) {
		return clientIP(r), true
	})
}

// clientIP is the socket peer. Forwarded headers only count when the router
// runs behind a trusted proxy and has already rewritten RemoteAddr from them.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
