package octokit

import (
	"log/slog"
	"net/http"

	"github.com/aussiebroadwan/probot/pkg/throttle"
	"github.com/gregjones/httpcache"
	"github.com/patrickmn/go-cache"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"

	// DefaultUserAgent is sent when Options.UserAgent is empty.
	DefaultUserAgent = "probot-go"

	// APIVersion is sent as X-GitHub-Api-Version on every request.
	APIVersion = "2022-11-28"
)

// Options configure a Client. Every field is optional, the zero value
// talks anonymously to DefaultBaseURL.
type Options struct {
	BaseURL   string
	Auth      *Auth
	Throttle  *throttle.Options
	UserAgent string

	// HTTPClient supplies the base transport and timeout. Its Transport is
	// wrapped, never modified.
	HTTPClient *http.Client

	Log     *slog.Logger
	Metrics *Metrics

	// ConditionalCache keeps responses and revalidates them with
	// ETag / If-Modified-Since.
	ConditionalCache bool

	// HTTPCache stores those responses. Clients sharing one cache share
	// their ETags, nil gives each client its own in-memory cache.
	HTTPCache httpcache.Cache
}

// Auth describes how a client authenticates. Set Token for a personal or
// installation token, or AppID and PrivateKey to authenticate as the app.
type Auth struct {
	Token string

	AppID      int64
	PrivateKey string

	// Cache holds signed app JWTs between requests. Optional.
	Cache *cache.Cache
}

// IsToken reports whether a is token auth.
func (a *Auth) IsToken() bool {
	return a != nil && a.Token != ""
}

// IsZero reports whether no field is set.
func (a *Auth) IsZero() bool {
	return a == nil || (a.Token == "" && a.AppID == 0 && a.PrivateKey == "" && a.Cache == nil)
}

// Merge returns a new Auth with the non-zero fields of override laid over
// a. Neither a nor override is modified.
func (a *Auth) Merge(override *Auth) *Auth {
	out := &Auth{}
	if a != nil {
		*out = *a
	}
	if override == nil {
		return out
	}

	if override.Token != "" {
		out.Token = override.Token
	}
	if override.AppID != 0 {
		out.AppID = override.AppID
	}
	if override.PrivateKey != "" {
		out.PrivateKey = override.PrivateKey
	}
	if override.Cache != nil {
		out.Cache = override.Cache
	}
	return out
}

func (a *Auth) clone() *Auth {
	if a == nil {
		return nil
	}
	out := *a
	return &out
}
