package probot

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/aussiebroadwan/probot/pkg/throttle"
	"github.com/gregjones/httpcache"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	// tokenCacheTTL keeps cached credentials just under GitHub's one hour
	// token lifetime.
	tokenCacheTTL = time.Hour - time.Minute
)

// Options are the non-serialisable parts of the setup.
type Options struct {
	// Log replaces the logger built from Config.
	Log *slog.Logger

	// Registerer receives the client metrics, nil disables them.
	Registerer prometheus.Registerer

	HTTPClient *http.Client

	// Throttle is laid over the throttle policy derived from Config.
	Throttle *throttle.Options

	// HTTPCache backs conditional requests for every client, nil means one
	// in-memory cache shared by the clients of this Probot.
	HTTPCache httpcache.Cache
}

// Probot owns the client defaults of one GitHub App.
type Probot struct {
	cfg    Config
	log    *slog.Logger
	cache  *cache.Cache
	closer io.Closer

	octokit *octokit.Constructor
}

// New wires logging, the token cache and throttling into a client
// constructor. It does no network I/O, Redis is dialled on first use.
func New(cfg Config, env envx.Env, opts Options) *Probot {
	log := opts.Log
	if log == nil {
		log = slogx.New(slogx.Config{
			Service: "probot",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		})
	}

	LogObsoleteEnvWarnings(log, env)

	p := &Probot{
		cfg:   cfg,
		log:   log,
		cache: cache.New(tokenCacheTTL, 10*time.Minute),
	}

	limits := throttle.LimitsFromEnv(env)

	var redisCfg *throttle.RedisConfig
	callerThrottle := &throttle.Options{
		OnRateLimit:          p.onRateLimit(false),
		OnSecondaryRateLimit: p.onRateLimit(true),
	}
	switch {
	case opts.Throttle != nil && opts.Throttle.Limiter != nil:
		// The caller paces requests, no store of our own.
	case cfg.RedisURL != "":
		redisCfg = &throttle.RedisConfig{URL: cfg.RedisURL, Limits: limits}
	default:
		callerThrottle.Limiter = throttle.NewMemoryLimiter(limits)
	}

	httpCache := opts.HTTPCache
	if httpCache == nil {
		httpCache = httpcache.NewMemoryCache()
	}

	var metrics *octokit.Metrics
	if opts.Registerer != nil {
		metrics = octokit.NewMetrics(opts.Registerer)
	}

	defaults := OctokitWithDefaults(DefaultsOptions{
		Cache:       p.cache,
		Log:         log,
		GithubToken: cfg.GithubToken,
		AppID:       cfg.AppID,
		PrivateKey:  cfg.PrivateKey,
		Redis:       redisCfg,
		Throttle:    throttle.Merge(callerThrottle, opts.Throttle),
		BaseURL:     cfg.BaseURL,
		Env:         env,
	})

	// Process-wide settings ride on top of the defaults.
	p.octokit = defaults.Defaults(func(o octokit.Options) octokit.Options {
		if o.UserAgent == "" {
			o.UserAgent = cfg.UserAgent
		}
		if o.HTTPClient == nil {
			o.HTTPClient = opts.HTTPClient
		}
		if o.Metrics == nil {
			o.Metrics = metrics
		}
		if o.HTTPCache == nil {
			o.HTTPCache = httpCache
		}
		o.ConditionalCache = o.ConditionalCache || cfg.ConditionalCache
		return o
	})

	resolved := p.octokit.Resolve(octokit.Options{})
	if resolved.Throttle != nil {
		if closer, ok := resolved.Throttle.Limiter.(io.Closer); ok {
			p.closer = closer
		}
	}

	log.Debug("probot configured",
		"auth", p.authKind(),
		"base_url", resolved.BaseURL,
		"redis", redisCfg != nil,
	)
	return p
}

// Octokit is the defaulted constructor, use it to create clients with
// per-call overrides.
func (p *Probot) Octokit() *octokit.Constructor { return p.octokit }

// Auth returns a client authenticated with the configured token, or as the
// app itself.
func (p *Probot) Auth() *octokit.Client {
	return p.octokit.New(octokit.Options{})
}

// Log is the application logger.
func (p *Probot) Log() *slog.Logger { return p.log }

// Close releases the Redis connection pool, if any.
func (p *Probot) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func (p *Probot) authKind() string {
	switch {
	case p.cfg.GithubToken != "":
		return "token"
	case p.cfg.AppID != 0:
		return "app"
	default:
		return "none"
	}
}

func (p *Probot) onRateLimit(secondary bool) throttle.RateLimitHandler {
	return func(retryAfter time.Duration, req *http.Request) {
		msg := "rate limit hit"
		if secondary {
			msg = "secondary rate limit hit"
		}
		p.log.Warn(msg,
			"method", req.Method,
			"url", req.URL.Redacted(),
			"retry_after", retryAfter,
		)
	}
}
