// Package ratelimit enforces fixed-window request limits per caller. The
// window counter lives in Redis when it is configured so every API instance
// shares the same budget, with an in-memory fallback for single-node runs.
package ratelimit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sokoline/api/internal/platform/auth"
	"github.com/sokoline/api/internal/platform/httpx"
)

// Counter increments a window counter and reports the running total.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisCounter shares the window counters across instances.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps an existing Redis client.
func NewRedisCounter(client *redis.Client) (*RedisCounter, error) {
	if client == nil {
		return nil, fmt.Errorf("ratelimit: redis client is required")
	}
	return &RedisCounter{client: client}, nil
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// The key's lifetime is set once, when the window opens. Refreshing it on
	// every hit would keep a steadily-used key alive forever.
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

type memoryWindow struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounter keeps the window counters in process memory.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]memoryWindow
	clock   func() time.Time
}

// NewMemoryCounter builds an empty in-memory counter.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{
		windows: make(map[string]memoryWindow),
		clock:   time.Now,
	}
}

// WithClock overrides the time source, primarily for tests.
func (c *MemoryCounter) WithClock(clock func() time.Time) *MemoryCounter {
	if clock != nil {
		c.clock = clock
	}
	return c
}

func (c *MemoryCounter) Incr(_ context.Context, key string, window time.Duration) (int64, error) {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.windows[key]
	if !ok || now.After(entry.expiresAt) {
		entry = memoryWindow{expiresAt: now.Add(window)}
	}
	entry.count++
	c.windows[key] = entry
	return entry.count, nil
}

// Limiter applies per-minute fixed-window limits. Authenticated callers are
// keyed by user id and get the higher budget; anonymous callers share a budget
// per source IP.
type Limiter struct {
	counter             Counter
	anonymousPerMinute  int
	identifiedPerMinute int
	window              time.Duration
}

// Config bounds the two caller classes.
type Config struct {
	AnonymousPerMinute  int
	IdentifiedPerMinute int
}

// NewLimiter builds a Limiter over the given counter.
func NewLimiter(counter Counter, cfg Config) (*Limiter, error) {
	if counter == nil {
		return nil, fmt.Errorf("ratelimit: counter is required")
	}
	if cfg.AnonymousPerMinute <= 0 {
		cfg.AnonymousPerMinute = 120
	}
	if cfg.IdentifiedPerMinute <= 0 {
		cfg.IdentifiedPerMinute = cfg.AnonymousPerMinute
	}
	return &Limiter{
		counter:             counter,
		anonymousPerMinute:  cfg.AnonymousPerMinute,
		identifiedPerMinute: cfg.IdentifiedPerMinute,
		window:              time.Minute,
	}, nil
}

// Middleware rejects requests over budget with 429. Counter failures fail
// open so a Redis outage does not take the API down with it.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limit := l.classify(r)
			count, err := l.counter.Incr(r.Context(), key, l.window)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			if count > int64(limit) {
				w.Header().Set("Retry-After", "60")
				httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *Limiter) classify(r *http.Request) (string, int) {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return "rl:user:" + identity.UserID.String(), l.identifiedPerMinute
	}
	return "rl:ip:" + clientIP(r), l.anonymousPerMinute
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
