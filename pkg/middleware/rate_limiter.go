package middleware

import (
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/snapstyle/snapstyle-backend/pkg/infra/prometheus"
)

const (
	rateLimitWindow   = 60 * time.Second
	sweepInterval     = 60 * time.Second
	defaultRouteLimit = 120
)

type windowEntry struct {
	at    time.Time
	count int
}

// rateLimiterMiddleware admits or rejects inbound requests on a sliding
// 60-second window per (client, route group). Identity comes from the
// first X-Forwarded-For value, so the service must sit behind a trusted
// proxy for it to be meaningful.
type rateLimiterMiddleware struct {
	logger       *logrus.Logger
	limits       map[string]int
	defaultLimit int

	mu        sync.Mutex
	windows   map[string][]windowEntry
	lastSweep time.Time

	now func() time.Time
}

type RateLimiterOpts struct {
	TimeProvider func() time.Time
}

// NewRateLimiterMiddleware builds the ingress gate from a per-minute
// limit table keyed by route prefix. The longest matching prefix wins.
func NewRateLimiterMiddleware(limits map[string]int, defaultLimit int, logger *logrus.Logger, opts *RateLimiterOpts) Middleware {
	if defaultLimit <= 0 {
		defaultLimit = defaultRouteLimit
	}
	now := time.Now
	if opts != nil && opts.TimeProvider != nil {
		now = opts.TimeProvider
	}
	return &rateLimiterMiddleware{
		logger:       logger,
		limits:       limits,
		defaultLimit: defaultLimit,
		windows:      make(map[string][]windowEntry),
		lastSweep:    now(),
		now:          now,
	}
}

func (m *rateLimiterMiddleware) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()
		if path == "/" || path == "/health" || strings.HasPrefix(path, "/static") {
			return c.Next()
		}

		m.maybeSweep()

		client := clientIdentity(c)
		decision := m.check(client, path)

		c.Set("X-RateLimit-Limit", strconv.Itoa(decision.limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(decision.remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(decision.reset.Unix(), 10))

		if !decision.allowed {
			group := routeGroup(path)
			prometheus.IngressRejectedTotal.WithLabelValues(group).Inc()
			m.logger.WithFields(logrus.Fields{
				"client": client,
				"path":   path,
				"limit":  decision.limit,
			}).Warn("ingress rate limit exceeded")

			c.Set("Retry-After", strconv.Itoa(decision.retryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"detail":      "Too many requests. Please slow down.",
				"retry_after": decision.retryAfter,
			})
		}

		return c.Next()
	}
}

type admitDecision struct {
	allowed    bool
	limit      int
	remaining  int
	retryAfter int
	reset      time.Time
}

// check counts the client's requests for the path's route group within
// the trailing window, records the request when admitted, and computes
// the retry hint from the oldest counted entry when not.
func (m *rateLimiterMiddleware) check(client, path string) admitDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	limit := m.limitForPath(path)
	key := client + ":" + routeGroup(path)
	cutoff := now.Add(-rateLimitWindow)

	entries := m.windows[key]
	pruned := entries[:0]
	for _, e := range entries {
		if e.at.After(cutoff) {
			pruned = append(pruned, e)
		}
	}

	count := 0
	for _, e := range pruned {
		count += e.count
	}

	if count >= limit {
		m.windows[key] = pruned
		// The client may retry once the oldest counted entry leaves the
		// window. A zero-limit route has no entries to wait out, so the
		// full window is the hint.
		retryAfter := int(rateLimitWindow / time.Second)
		reset := now.Add(rateLimitWindow)
		if len(pruned) > 0 {
			oldestExit := pruned[0].at.Add(rateLimitWindow)
			reset = oldestExit
			retryAfter = int(math.Ceil(oldestExit.Sub(now).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
		}
		return admitDecision{
			limit:      limit,
			retryAfter: retryAfter,
			reset:      reset,
		}
	}

	m.windows[key] = append(pruned, windowEntry{at: now, count: 1})
	return admitDecision{
		allowed:   true,
		limit:     limit,
		remaining: limit - count - 1,
		reset:     now.Add(rateLimitWindow),
	}
}

func (m *rateLimiterMiddleware) limitForPath(path string) int {
	best := ""
	limit := m.defaultLimit
	for prefix, l := range m.limits {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(best) {
			best = prefix
			limit = l
		}
	}
	return limit
}

// maybeSweep prunes every window at most once per sweepInterval to bound
// memory across idle clients.
func (m *rateLimiterMiddleware) maybeSweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now

	cutoff := now.Add(-rateLimitWindow)
	for key, entries := range m.windows {
		pruned := entries[:0]
		for _, e := range entries {
			if e.at.After(cutoff) {
				pruned = append(pruned, e)
			}
		}
		if len(pruned) == 0 {
			delete(m.windows, key)
			continue
		}
		m.windows[key] = pruned
	}
}

// routeGroup buckets a path by its second segment, so /api/search/text
// and /api/search/image share one window.
func routeGroup(path string) string {
	segments := strings.Split(path, "/")
	if len(segments) > 2 && segments[2] != "" {
		return segments[2]
	}
	return "root"
}

func clientIdentity(c *fiber.Ctx) string {
	if forwarded := c.Get("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return c.IP()
}
