package probot

import (
	"io"
	"log/slog"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/octokit"
	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/aussiebroadwan/probot/pkg/throttle"
	"github.com/patrickmn/go-cache"
)

// gheDeprecation is logged when the base URL had to be derived from
// GHE_HOST / GHE_PROTOCOL.
var gheDeprecation = slogx.Deprecation{
	Message: `[probot] "GHE_HOST"/"GHE_PROTOCOL" is deprecated when using with the Probot constructor. ` +
		`Use "probot.Config{BaseURL: \"https://github.acme-inc.com/api/v3\"}" instead`,
}

// throttleOptionsFor is swapped in tests to observe the computed policy.
var throttleOptionsFor = throttle.OptionsFor

// DefaultsOptions is everything OctokitWithDefaults needs to compute the
// defaults every client is created with.
type DefaultsOptions struct {
	// Cache holds app JWTs. Only used for app auth.
	Cache *cache.Cache

	// Octokit is the constructor to derive from, nil means a fresh root
	// constructor.
	Octokit *octokit.Constructor

	Log *slog.Logger

	// GithubToken, when set, wins over the app credentials.
	GithubToken string
	AppID       int64
	PrivateKey  string

	// Redis enables throttling shared through Redis.
	Redis *throttle.RedisConfig

	// Throttle is laid over whatever the Redis config produces.
	Throttle *throttle.Options

	BaseURL string

	// Env is consulted for GHE_HOST and GHE_PROTOCOL.
	Env envx.Env
}

// OctokitWithDefaults returns a constructor whose clients authenticate as
// the app (or with GithubToken), talk to the configured GitHub host and are
// throttled as configured. Options passed when creating a client are
// merged over these defaults, see mergeInstanceOptions.
//
// opts is not modified and nothing here performs I/O.
func OctokitWithDefaults(opts DefaultsOptions) *octokit.Constructor {
	log := slogx.OrDiscard(opts.Log)

	var auth *octokit.Auth
	if opts.GithubToken != "" {
		auth = &octokit.Auth{Token: opts.GithubToken}
	} else {
		auth = &octokit.Auth{
			AppID:      opts.AppID,
			PrivateKey: opts.PrivateKey,
			Cache:      opts.Cache,
		}
	}

	computed := throttleOptionsFor(log, opts.Redis)

	// A caller limiter replaces the computed one, whose Redis pool would
	// otherwise never be closed.
	if opts.Throttle != nil && opts.Throttle.Limiter != nil && computed != nil {
		if closer, ok := computed.Limiter.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn("throttle: close replaced limiter", "error", err)
			}
		}
	}

	baseURL := opts.BaseURL
	if baseURL == "" && opts.Env.Get("GHE_HOST") != "" {
		baseURL = gheBaseURL(opts.Env)
		slogx.WarnDeprecation(log, gheDeprecation)
	}

	defaults := octokit.Options{
		BaseURL:  baseURL,
		Auth:     auth,
		Throttle: throttle.Merge(computed, opts.Throttle),
		Log:      opts.Log,
	}

	ctor := opts.Octokit
	if ctor == nil {
		ctor = octokit.NewConstructor()
	}
	return ctor.Defaults(func(instance octokit.Options) octokit.Options {
		return mergeInstanceOptions(defaults, instance)
	})
}

// gheBaseURL builds the REST root of a GitHub Enterprise Server host.
func gheBaseURL(env envx.Env) string {
	return env.GetOrDefault("GHE_PROTOCOL", "https") + "://" + env.Get("GHE_HOST") + "/api/v3"
}

// mergeInstanceOptions lays the options a client is created with over the
// computed defaults:
//
//	BaseURL, UserAgent, HTTPClient, Log,
//	Metrics, ConditionalCache, HTTPCache instance value when non-zero, else default
//	Auth                                instance nil: default verbatim
//	                                    else key-wise, instance fields win
//	Throttle                            instance nil: default verbatim
//	                                    else key-wise, instance fields win
//
// Auth and Throttle are always freshly allocated so no client can reach
// into defaults or another client's options.
func mergeInstanceOptions(defaults, instance octokit.Options) octokit.Options {
	out := defaults

	if instance.BaseURL != "" {
		out.BaseURL = instance.BaseURL
	}
	if instance.UserAgent != "" {
		out.UserAgent = instance.UserAgent
	}
	if instance.HTTPClient != nil {
		out.HTTPClient = instance.HTTPClient
	}
	if instance.Log != nil {
		out.Log = instance.Log
	}
	if instance.Metrics != nil {
		out.Metrics = instance.Metrics
	}
	if instance.ConditionalCache {
		out.ConditionalCache = true
	}
	if instance.HTTPCache != nil {
		out.HTTPCache = instance.HTTPCache
	}

	// Merge with a nil override copies, which covers "instance nil".
	out.Auth = defaults.Auth.Merge(instance.Auth)
	out.Throttle = throttle.Merge(defaults.Throttle, instance.Throttle)

	return out
}
