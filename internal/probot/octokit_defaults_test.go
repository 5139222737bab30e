package probot

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/aussiebroadwan/probot/pkg/throttle"
	"github.com/gregjones/httpcache"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func resolveDefaults(opts DefaultsOptions) octokit.Options {
	return OctokitWithDefaults(opts).Resolve(octokit.Options{})
}

func closeLimiter(t *testing.T, opts *throttle.Options) {
	t.Helper()
	if opts == nil {
		return
	}
	if l, ok := opts.Limiter.(*throttle.RedisLimiter); ok {
		t.Cleanup(func() { _ = l.Close() })
	}
}

func TestDefaultsTokenAuthIgnoresAppCredentials(t *testing.T) {
	opts := resolveDefaults(DefaultsOptions{
		GithubToken: "ghp_token",
		AppID:       1,
		PrivateKey:  "key",
		Cache:       cache.New(time.Hour, time.Minute),
	})

	require.Equal(t, &octokit.Auth{Token: "ghp_token"}, opts.Auth)
}

func TestDefaultsAppAuth(t *testing.T) {
	tokens := cache.New(time.Hour, time.Minute)
	opts := resolveDefaults(DefaultsOptions{
		AppID:      1,
		PrivateKey: "key",
		Cache:      tokens,
	})

	require.Equal(t, &octokit.Auth{AppID: 1, PrivateKey: "key", Cache: tokens}, opts.Auth)
	require.Same(t, tokens, opts.Auth.Cache)
}

func TestDefaultsBaseURLFromGHEHost(t *testing.T) {
	sink, log := newLogSink()
	in := DefaultsOptions{
		Log: log,
		Env: envx.Env{"GHE_HOST": "x.example.com"},
	}

	ctor := OctokitWithDefaults(in)
	require.Equal(t, "https://x.example.com/api/v3", ctor.Resolve(octokit.Options{}).BaseURL)

	// Building clients does not warn again.
	ctor.Resolve(octokit.Options{})
	ctor.New(octokit.Options{})

	warnings := sink.warnings(t)
	require.Len(t, warnings, 1)
	require.Contains(t, warnings[0]["msg"], `"GHE_HOST"/"GHE_PROTOCOL" is deprecated`)
	dep, ok := warnings[0]["deprecation"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Deprecation", dep["name"])

	// The input is left alone.
	require.Empty(t, in.BaseURL)
}

func TestDefaultsBaseURLWithGHEProtocol(t *testing.T) {
	opts := resolveDefaults(DefaultsOptions{
		Env: envx.Env{"GHE_HOST": "ghe.local:8080", "GHE_PROTOCOL": "http"},
	})
	require.Equal(t, "http://ghe.local:8080/api/v3", opts.BaseURL)
}

func TestDefaultsExplicitBaseURLWins(t *testing.T) {
	sink, log := newLogSink()
	opts := resolveDefaults(DefaultsOptions{
		Log:     log,
		BaseURL: "https://github.acme-inc.com/api/v3",
		Env:     envx.Env{"GHE_HOST": "x.example.com"},
	})

	require.Equal(t, "https://github.acme-inc.com/api/v3", opts.BaseURL)
	require.Empty(t, sink.warnings(t))
}

func TestDefaultsNoBaseURL(t *testing.T) {
	sink, log := newLogSink()
	opts := resolveDefaults(DefaultsOptions{Log: log, Env: envx.Env{"GHE_HOST": ""}})

	require.Empty(t, opts.BaseURL)
	require.Empty(t, sink.warnings(t))
	require.Equal(t, octokit.DefaultBaseURL, OctokitWithDefaults(DefaultsOptions{}).New(octokit.Options{}).BaseURL())
}

func TestDefaultsNoThrottle(t *testing.T) {
	opts := resolveDefaults(DefaultsOptions{})
	require.Nil(t, opts.Throttle)

	opts = resolveDefaults(DefaultsOptions{Throttle: &throttle.Options{}})
	require.Nil(t, opts.Throttle)
}

func TestDefaultsThrottleFromRedis(t *testing.T) {
	opts := resolveDefaults(DefaultsOptions{
		Redis: &throttle.RedisConfig{URL: "redis://localhost:6379/0"},
	})
	closeLimiter(t, opts.Throttle)

	require.NotNil(t, opts.Throttle)
	require.Equal(t, throttle.DefaultID, opts.Throttle.ID)
	require.IsType(t, &throttle.RedisLimiter{}, opts.Throttle.Limiter)
}

// captureThrottleOptions records every policy computed from a Redis config
// until the test ends.
func captureThrottleOptions(t *testing.T) *[]*throttle.Options {
	t.Helper()
	var computed []*throttle.Options
	prev := throttleOptionsFor
	throttleOptionsFor = func(log *slog.Logger, cfg *throttle.RedisConfig) *throttle.Options {
		opts := prev(log, cfg)
		computed = append(computed, opts)
		return opts
	}
	t.Cleanup(func() { throttleOptionsFor = prev })
	return &computed
}

func TestDefaultsThrottleCallerWins(t *testing.T) {
	var called bool
	callerLimiter := throttle.NewMemoryLimiter(nil)
	computed := captureThrottleOptions(t)

	opts := resolveDefaults(DefaultsOptions{
		Redis: &throttle.RedisConfig{URL: "redis://localhost:6379/0"},
		Throttle: &throttle.Options{
			ID:          "my-app",
			Limiter:     callerLimiter,
			OnRateLimit: func(time.Duration, *http.Request) { called = true },
		},
	})

	require.NotNil(t, opts.Throttle)
	require.Equal(t, "my-app", opts.Throttle.ID)
	require.Same(t, callerLimiter, opts.Throttle.Limiter)

	opts.Throttle.OnRateLimit(time.Second, nil)
	require.True(t, called)

	// The Redis limiter that lost the merge has already been closed.
	require.Len(t, *computed, 1)
	replaced, ok := (*computed)[0].Limiter.(*throttle.RedisLimiter)
	require.True(t, ok)
	err := replaced.Wait(context.Background(), throttle.GroupGlobal)
	require.ErrorIs(t, err, redis.ErrClosed)
}

func TestDefaultsThrottleKeepsComputedFields(t *testing.T) {
	opts := resolveDefaults(DefaultsOptions{
		Redis:    &throttle.RedisConfig{URL: "redis://localhost:6379/0"},
		Throttle: &throttle.Options{Enabled: throttle.Bool(true)},
	})
	closeLimiter(t, opts.Throttle)

	require.Equal(t, throttle.DefaultID, opts.Throttle.ID)
	require.IsType(t, &throttle.RedisLimiter{}, opts.Throttle.Limiter)
	require.True(t, opts.Throttle.IsEnabled())
}

func TestDefaultsInstancesDoNotLeak(t *testing.T) {
	tokens := cache.New(time.Hour, time.Minute)
	ctor := OctokitWithDefaults(DefaultsOptions{AppID: 1, PrivateKey: "key", Cache: tokens})

	first := ctor.Resolve(octokit.Options{Auth: &octokit.Auth{AppID: 2}})
	second := ctor.Resolve(octokit.Options{Auth: &octokit.Auth{PrivateKey: "other"}})
	plain := ctor.Resolve(octokit.Options{})

	require.Equal(t, &octokit.Auth{AppID: 2, PrivateKey: "key", Cache: tokens}, first.Auth)
	require.Equal(t, &octokit.Auth{AppID: 1, PrivateKey: "other", Cache: tokens}, second.Auth)
	require.Equal(t, &octokit.Auth{AppID: 1, PrivateKey: "key", Cache: tokens}, plain.Auth)

	// Scribbling on a resolved result does not reach the defaults.
	plain.Auth.AppID = 99
	require.Equal(t, int64(1), ctor.Resolve(octokit.Options{}).Auth.AppID)
	require.NotSame(t, first.Auth, second.Auth)
}

func TestDefaultsInstanceThrottleMerge(t *testing.T) {
	base := throttle.NewMemoryLimiter(nil)
	ctor := OctokitWithDefaults(DefaultsOptions{
		Throttle: &throttle.Options{ID: "base", Limiter: base},
	})

	merged := ctor.Resolve(octokit.Options{Throttle: &throttle.Options{Enabled: throttle.Bool(false)}})
	require.Equal(t, "base", merged.Throttle.ID)
	require.Same(t, base, merged.Throttle.Limiter)
	require.False(t, merged.Throttle.IsEnabled())

	plain := ctor.Resolve(octokit.Options{})
	require.True(t, plain.Throttle.IsEnabled())
	require.NotSame(t, merged.Throttle, plain.Throttle)
}

func TestDefaultsRunBeforeParentConstructor(t *testing.T) {
	var seen []string
	parent := octokit.NewConstructor().Defaults(func(o octokit.Options) octokit.Options {
		seen = append(seen, o.BaseURL)
		if o.UserAgent == "" {
			o.UserAgent = "parent-agent"
		}
		return o
	})

	ctor := OctokitWithDefaults(DefaultsOptions{Octokit: parent, BaseURL: "https://ghe.example.com/api/v3"})
	opts := ctor.Resolve(octokit.Options{})

	require.Equal(t, []string{"https://ghe.example.com/api/v3"}, seen)
	require.Equal(t, "parent-agent", opts.UserAgent)
}

func TestMergeInstanceOptionsScalars(t *testing.T) {
	defaultClient := &http.Client{}
	instanceClient := &http.Client{}
	instanceLog := slogx.Discard()
	instanceCache := httpcache.NewMemoryCache()

	defaults := octokit.Options{
		BaseURL:    "https://default.example.com",
		UserAgent:  "default",
		HTTPClient: defaultClient,
		Auth:       &octokit.Auth{Token: "t"},
	}

	out := mergeInstanceOptions(defaults, octokit.Options{})
	require.Equal(t, "https://default.example.com", out.BaseURL)
	require.Equal(t, "default", out.UserAgent)
	require.Same(t, defaultClient, out.HTTPClient)
	require.Equal(t, defaults.Auth, out.Auth)
	require.NotSame(t, defaults.Auth, out.Auth)

	out = mergeInstanceOptions(defaults, octokit.Options{
		BaseURL:          "https://instance.example.com",
		UserAgent:        "instance",
		HTTPClient:       instanceClient,
		Log:              instanceLog,
		ConditionalCache: true,
		HTTPCache:        instanceCache,
	})
	require.Equal(t, "https://instance.example.com", out.BaseURL)
	require.Equal(t, "instance", out.UserAgent)
	require.Same(t, instanceClient, out.HTTPClient)
	require.Same(t, instanceLog, out.Log)
	require.True(t, out.ConditionalCache)
	require.Same(t, instanceCache, out.HTTPCache)

	// Defaults are untouched.
	require.Equal(t, "https://default.example.com", defaults.BaseURL)
	require.False(t, defaults.ConditionalCache)
}

func TestDefaultsConcurrentUse(t *testing.T) {
	ctor := OctokitWithDefaults(DefaultsOptions{AppID: 1, PrivateKey: "key"})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	for i := range 8 {
		go func() {
			defer func() { done <- struct{}{} }()
			opts := ctor.Resolve(octokit.Options{Auth: &octokit.Auth{AppID: int64(i + 10)}})
			opts.Auth.PrivateKey = "mutated"
		}()
	}
	for range 8 {
		select {
		case <-done:
		case <-ctx.Done():
			t.Fatal("timed out")
		}
	}

	require.Equal(t, &octokit.Auth{AppID: 1, PrivateKey: "key"}, ctor.Resolve(octokit.Options{}).Auth)
}
