package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// Counter increments a fixed-window counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// KeyFunc picks the identity a limit applies to. An empty key skips limiting.
type KeyFunc func(c *gin.Context) string

func ByClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// ByUser must run after Session.
func ByUser(c *gin.Context) string {
	id, ok := UserID(c)
	if !ok {
		return ""
	}
	return "user:" + strconv.FormatInt(id, 10)
}

// RateLimit blocks identities that send more than max requests per window.
// Counter errors fail open.
func RateLimit(counter Counter, scope string, max int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || max <= 0 {
			c.Next()
			return
		}

		ident := key(c)
		if ident == "" {
			c.Next()
			return
		}

		k := "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		val, err := counter.Incr(c.Request.Context(), k, window)
		if err != nil {
			c.Header("X-RateLimit-Error", "counter-error")
			c.Next()
			return
		}

		remaining := int64(max) - val
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if val > int64(max) {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}

type window struct {
	start time.Time
	count int64
}

// MemoryCounter is a per-process fixed-window counter for single instance
// deployments without Redis.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{windows: make(map[string]*window), now: time.Now}
}

func (m *MemoryCounter) Incr(_ context.Context, key string, d time.Duration) (int64, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) >= d {
		if len(m.windows) > 10000 {
			m.sweep(now, d)
		}
		m.windows[key] = &window{start: now, count: 1}
		return 1, nil
	}
	w.count++
	return w.count, nil
}

func (m *MemoryCounter) sweep(now time.Time, d time.Duration) {
	for k, w := range m.windows {
		if now.Sub(w.start) >= d {
			delete(m.windows, k)
		}
	}
}
