package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aleks2005vk/cheap-gasoline/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const purgeInterval = 5 * time.Minute

// windowEntry counts requests of one client within a fixed window.
type windowEntry struct {
	count     int
	windowEnd time.Time
}

// fixedWindow is a per-key fixed-window counter. Expired keys are purged
// lazily so clients that never return do not accumulate.
type fixedWindow struct {
	mu         sync.Mutex
	entries    map[string]*windowEntry
	limit      int
	window     time.Duration
	lastPurged time.Time
	now        func() time.Time
}

func newFixedWindow(limit int, window time.Duration) *fixedWindow {
	return &fixedWindow{
		entries: make(map[string]*windowEntry),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// allow records a hit for key and reports whether it is within the limit,
// plus the end of the current window.
func (w *fixedWindow) allow(key string) (bool, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if now.Sub(w.lastPurged) > purgeInterval {
		w.purgeLocked(now)
	}

	e, ok := w.entries[key]
	if !ok || now.After(e.windowEnd) {
		e = &windowEntry{windowEnd: now.Add(w.window)}
		w.entries[key] = e
	}
	e.count++
	return e.count <= w.limit, e.windowEnd
}

func (w *fixedWindow) purgeLocked(now time.Time) {
	purged := 0
	for k, e := range w.entries {
		if now.After(e.windowEnd) {
			delete(w.entries, k)
			purged++
		}
	}
	w.lastPurged = now
	if purged > 0 {
		log.Debug().Int("purged", purged).Int("remaining", len(w.entries)).Msg("rate limiter entries purged")
	}
}

// RateLimiter limits each client IP to limit requests per window.
// A non-positive limit disables it.
func RateLimiter(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	w := newFixedWindow(limit, window)
	return func(c *gin.Context) {
		ok, until := w.allow(c.ClientIP())
		if !ok {
			secs := int(time.Until(until).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many requests, try again shortly"))
			return
		}
		c.Next()
	}
}

// AuthRateLimiter limits login and registration attempts to 20 per minute per IP.
func AuthRateLimiter() gin.HandlerFunc {
	w := newFixedWindow(20, time.Minute)
	return func(c *gin.Context) {
		if ok, _ := w.allow(c.ClientIP()); !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("too many attempts, try again in a minute"))
			return
		}
		c.Next()
	}
}
