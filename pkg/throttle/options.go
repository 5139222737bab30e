package throttle

import (
	"context"
	"net/http"
	"time"
)

// Limiter paces outbound requests. Wait blocks until a request in group may
// be sent or ctx is done.
type Limiter interface {
	Wait(ctx context.Context, group string) error
}

// RateLimitHandler is told about a rate limit response. retryAfter is what
// GitHub asked us to wait, req is the request that was limited.
type RateLimitHandler func(retryAfter time.Duration, req *http.Request)

// Options is the throttle policy handed to the octokit client. Every field
// is optional, zero means "not set" so policies can be merged key by key.
type Options struct {
	// ID namespaces limiter keys when the store is shared between apps.
	ID string

	// Enabled switches throttling off when explicitly false.
	Enabled *bool

	Limiter Limiter

	OnRateLimit          RateLimitHandler
	OnSecondaryRateLimit RateLimitHandler
}

// IsZero reports whether no field is set.
func (o *Options) IsZero() bool {
	return o == nil || (o.ID == "" && o.Enabled == nil && o.Limiter == nil &&
		o.OnRateLimit == nil && o.OnSecondaryRateLimit == nil)
}

// IsEnabled reports whether requests should be paced.
func (o *Options) IsEnabled() bool {
	if o == nil {
		return false
	}
	return o.Enabled == nil || *o.Enabled
}

// Merge combines two policies field by field. Fields set on override win,
// everything else comes from base. Neither input is modified. The result is
// nil when both inputs are empty.
func Merge(base, override *Options) *Options {
	if base.IsZero() && override.IsZero() {
		return nil
	}

	out := &Options{}
	if base != nil {
		*out = *base
		if base.Enabled != nil {
			out.Enabled = Bool(*base.Enabled)
		}
	}
	if override == nil {
		return out
	}

	if override.ID != "" {
		out.ID = override.ID
	}
	if override.Enabled != nil {
		enabled := *override.Enabled
		out.Enabled = &enabled
	}
	if override.Limiter != nil {
		out.Limiter = override.Limiter
	}
	if override.OnRateLimit != nil {
		out.OnRateLimit = override.OnRateLimit
	}
	if override.OnSecondaryRateLimit != nil {
		out.OnSecondaryRateLimit = override.OnSecondaryRateLimit
	}

	return out
}

// Bool is a small helper for Options.Enabled literals.
func Bool(v bool) *bool { return &v }
