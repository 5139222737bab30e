package throttle

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"golang.org/x/time/rate"
)

// Request groups. GitHub applies stricter secondary limits to writes and
// search, so those are paced separately from everything else.
const (
	GroupGlobal        = "global"
	GroupWrite         = "write"
	GroupSearch        = "search"
	GroupNotifications = "notifications"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// PerSecond is the sustained rate as a float.
func (c RateLimitConfig) PerSecond() float64 {
	if c.Window <= 0 {
		return 0
	}
	return float64(c.RequestsPerWindow) / c.Window.Seconds()
}

// Limits maps a request group to its pacing.
type Limits map[string]RateLimitConfig

var (
	// GlobalLimit mirrors GitHub's primary quota for app installations.
	// Override with: THROTTLE_GLOBAL_REQUESTS, THROTTLE_GLOBAL_WINDOW_SEC, THROTTLE_GLOBAL_BURST
	GlobalLimit = RateLimitConfig{
		RequestsPerWindow: 5000,
		Window:            time.Hour,
		Burst:             100,
	}

	// WriteLimit keeps content-creating requests at one per second.
	// Override with: THROTTLE_WRITE_REQUESTS, THROTTLE_WRITE_WINDOW_SEC, THROTTLE_WRITE_BURST
	WriteLimit = RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Second,
		Burst:             1,
	}

	// SearchLimit spaces search API calls two seconds apart.
	// Override with: THROTTLE_SEARCH_REQUESTS, THROTTLE_SEARCH_WINDOW_SEC, THROTTLE_SEARCH_BURST
	SearchLimit = RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            2 * time.Second,
		Burst:             1,
	}

	// NotificationsLimit spaces notification writes three seconds apart.
	// Override with: THROTTLE_NOTIFICATIONS_REQUESTS, THROTTLE_NOTIFICATIONS_WINDOW_SEC, THROTTLE_NOTIFICATIONS_BURST
	NotificationsLimit = RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            3 * time.Second,
		Burst:             1,
	}
)

// DefaultLimits returns a fresh copy of the built-in group limits.
func DefaultLimits() Limits {
	return Limits{
		GroupGlobal:        GlobalLimit,
		GroupWrite:         WriteLimit,
		GroupSearch:        SearchLimit,
		GroupNotifications: NotificationsLimit,
	}
}

// LimitsFromEnv applies THROTTLE_* overrides from env to the defaults.
func LimitsFromEnv(env envx.Env) Limits {
	limits := DefaultLimits()
	for group, cfg := range limits {
		limits[group] = ParseRateLimitFromEnv(env, strings.ToUpper(group), cfg)
	}
	return limits
}

// ParseRateLimitFromEnv reads rate limit configuration from env.
// Variables follow the pattern: THROTTLE_{prefix}_{field}
// For example: THROTTLE_WRITE_REQUESTS, THROTTLE_WRITE_WINDOW_SEC, THROTTLE_WRITE_BURST
// Missing, invalid or non-positive values keep the default.
func ParseRateLimitFromEnv(env envx.Env, prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if requests := env.GetInt("THROTTLE_"+prefix+"_REQUESTS", 0); requests > 0 {
		config.RequestsPerWindow = requests
	}

	if windowSec := env.GetInt("THROTTLE_"+prefix+"_WINDOW_SEC", 0); windowSec > 0 {
		config.Window = time.Duration(windowSec) * time.Second
	}

	if burst := env.GetInt("THROTTLE_"+prefix+"_BURST", 0); burst > 0 {
		config.Burst = burst
	}

	return config
}

// For returns the config for group, falling back to the global
// group and then to GlobalLimit. A non-positive RequestsPerWindow or Window
// is replaced by GlobalLimit's and Burst is at least 1, so every store
// paces the same config the same way.
func (l Limits) For(group string) RateLimitConfig {
	cfg, ok := l[group]
	if !ok {
		if cfg, ok = l[GroupGlobal]; !ok {
			cfg = GlobalLimit
		}
	}
	return cfg.normalize()
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.RequestsPerWindow <= 0 {
		c.RequestsPerWindow = GlobalLimit.RequestsPerWindow
	}
	if c.Window <= 0 {
		c.Window = GlobalLimit.Window
	}
	c.Burst = max(c.Burst, 1)
	return c
}

// GroupFor sorts a request into its throttle group.
func GroupFor(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.Contains(path, "/search/"):
		return GroupSearch
	case r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions:
		return GroupGlobal
	case strings.Contains(path, "/notifications"):
		return GroupNotifications
	default:
		return GroupWrite
	}
}

// MemoryLimiter paces requests within a single process.
type MemoryLimiter struct {
	limits   Limits
	limiters sync.Map // map[string]*rate.Limiter
}

// NewMemoryLimiter creates a limiter using limits, nil means DefaultLimits.
func NewMemoryLimiter(limits Limits) *MemoryLimiter {
	if limits == nil {
		limits = DefaultLimits()
	}
	return &MemoryLimiter{limits: limits}
}

// getLimiter retrieves or creates a rate limiter for the given group
func (m *MemoryLimiter) getLimiter(group string) *rate.Limiter {
	// Fast path: limiter already exists
	if limiter, ok := m.limiters.Load(group); ok {
		return limiter.(*rate.Limiter)
	}

	cfg := m.limits.For(group)
	limiter := rate.NewLimiter(rate.Limit(cfg.PerSecond()), cfg.Burst)
	actual, _ := m.limiters.LoadOrStore(group, limiter)
	return actual.(*rate.Limiter)
}

func (m *MemoryLimiter) Wait(ctx context.Context, group string) error {
	return m.getLimiter(group).Wait(ctx)
}

// Allow reports whether a request in group may go out right now without
// waiting, consuming a token if so.
func (m *MemoryLimiter) Allow(group string) bool {
	return m.getLimiter(group).Allow()
}
