package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/httpx"
	"github.com/CaoNhatLinh/squareup-sub002/internal/platform/requestctx"
)

// rateLimiter decides whether key may make another request. When it may not, the returned
// duration says how long until the window resets.
type rateLimiter interface {
	Allow(key string) (bool, time.Duration)
}

// fixedWindowLimiter counts requests per key in fixed windows.
type fixedWindowLimiter struct {
	limit  int
	window time.Duration
	clock  func() time.Time
	mu     sync.Mutex
	store  map[string]windowEntry
}

type windowEntry struct {
	count int
	reset time.Time
}

// newFixedWindowLimiter returns nil when limit or window is not positive, which disables limiting.
func newFixedWindowLimiter(limit int, window time.Duration, clock func() time.Time) rateLimiter {
	if limit <= 0 || window <= 0 {
		return nil
	}
	if clock == nil {
		clock = time.Now
	}
	return &fixedWindowLimiter{
		limit:  limit,
		window: window,
		clock:  clock,
		store:  make(map[string]windowEntry),
	}
}

func (l *fixedWindowLimiter) Allow(key string) (bool, time.Duration) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = "unknown"
	}
	now := l.clock()
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.store[key]
	if !ok || !now.Before(entry.reset) {
		l.pruneLocked(now)
		l.store[key] = windowEntry{count: 1, reset: now.Add(l.window)}
		return true, 0
	}
	if entry.count >= l.limit {
		return false, entry.reset.Sub(now)
	}
	entry.count++
	l.store[key] = entry
	return true, 0
}

func (l *fixedWindowLimiter) pruneLocked(now time.Time) {
	for key, entry := range l.store {
		if !now.Before(entry.reset) {
			delete(l.store, key)
		}
	}
}

// limitByClientIP rejects requests over the limiter's budget with 429 and a Retry-After header.
// A nil limiter lets everything through.
func limitByClientIP(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestctx.ClientIP(ctx)
			if key == "" {
				key = r.RemoteAddr
			}
			allowed, retryAfter := limiter.Allow(key)
			if !allowed {
				seconds := int((retryAfter + time.Second - 1) / time.Second)
				if seconds < 1 {
					seconds = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				httpx.WriteError(ctx, w, httpx.NewError(httpx.CodeRateLimited, "too many discount previews, retry later", http.StatusTooManyRequests))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
