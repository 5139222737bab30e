package octokit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/aussiebroadwan/probot/pkg/throttle"
	"github.com/gregjones/httpcache"
)

const defaultTimeout = 30 * time.Second

// Client is a small GitHub REST client. It authenticates, paces and logs
// requests but never retries them.
type Client struct {
	opts    Options
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

func newClient(opts Options) *Client {
	opts.Auth = opts.Auth.clone()
	opts.Throttle = cloneThrottle(opts.Throttle)
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}

	log := slogx.OrDiscard(opts.Log)

	httpClient := &http.Client{Timeout: defaultTimeout}
	if opts.HTTPClient != nil {
		*httpClient = *opts.HTTPClient
	}

	rt := httpClient.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	if opts.ConditionalCache {
		store := opts.HTTPCache
		if store == nil {
			store = httpcache.NewMemoryCache()
		}
		cached := httpcache.NewTransport(store)
		cached.Transport = rt
		rt = cached
	}
	rt = slogx.Transport(log, rt)
	if opts.Metrics != nil {
		rt = &metricsTransport{metrics: opts.Metrics, next: rt}
	}
	if auth := newAuthenticator(opts.Auth); auth != nil {
		rt = &authTransport{auth: auth, next: rt}
	}
	httpClient.Transport = rt

	return &Client{
		opts:    opts,
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

// BaseURL is the API root every relative path is resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Options returns a copy of the options the client was built from.
func (c *Client) Options() Options {
	opts := c.opts
	opts.Auth = opts.Auth.clone()
	opts.Throttle = cloneThrottle(opts.Throttle)
	return opts
}

func cloneThrottle(t *throttle.Options) *throttle.Options {
	if t == nil {
		return nil
	}
	out := *t
	if t.Enabled != nil {
		out.Enabled = throttle.Bool(*t.Enabled)
	}
	return &out
}

// NewRequest builds a request for path, relative to BaseURL unless it is an
// absolute URL. A non-nil body is sent as JSON.
func (c *Client) NewRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + "/" + strings.TrimPrefix(path, "/")
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("octokit: encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("octokit: create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("X-GitHub-Api-Version", APIVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Do sends req and decodes a successful JSON response into out, which may
// be nil. Non-2xx responses come back as *RequestError or *RateLimitError
// together with the response, whose body has already been consumed.
func (c *Client) Do(req *http.Request, out any) (*http.Response, error) {
	if err := c.wait(req); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("octokit: read response body: %w", err)
	}

	if resp.StatusCode == http.StatusNotModified {
		return resp, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, c.responseError(req, resp, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return resp, fmt.Errorf("octokit: decode response: %w", err)
		}
	}
	return resp, nil
}

// Get fetches path and decodes the JSON response into out.
func (c *Client) Get(ctx context.Context, path string, out any) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(req, out)
}

// wait blocks on the throttle limiter when throttling is on.
func (c *Client) wait(req *http.Request) error {
	t := c.opts.Throttle
	if !t.IsEnabled() || t.Limiter == nil {
		return nil
	}

	group := throttle.GroupFor(req)
	start := time.Now()
	err := t.Limiter.Wait(req.Context(), group)
	c.opts.Metrics.observeWait(group, time.Since(start))
	if err != nil {
		return fmt.Errorf("octokit: throttle wait: %w", err)
	}
	return nil
}

func (c *Client) responseError(req *http.Request, resp *http.Response, body []byte) error {
	reqErr := parseErrorResponse(resp, body)

	rlErr := rateLimitError(resp, reqErr, time.Now())
	if rlErr == nil {
		return reqErr
	}

	c.opts.Metrics.incRateLimit(rlErr.Secondary)
	c.log.Warn("octokit: rate limit hit",
		"method", req.Method,
		"url", req.URL.Redacted(),
		"secondary", rlErr.Secondary,
		"retry_after", rlErr.RetryAfter,
		"github_request_id", rlErr.RequestID,
	)

	if t := c.opts.Throttle; t != nil {
		handler := t.OnRateLimit
		if rlErr.Secondary {
			handler = t.OnSecondaryRateLimit
		}
		if handler != nil {
			handler(rlErr.RetryAfter, req)
		}
	}
	return rlErr
}

// RateLimit fetches the caller's current quotas. The call itself does not
// count against them.
func (c *Client) RateLimit(ctx context.Context) (*RateLimits, error) {
	var out RateLimits
	if _, err := c.Get(ctx, "/rate_limit", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// App fetches the authenticated app. Requires app auth.
func (c *Client) App(ctx context.Context) (*App, error) {
	var out App
	if _, err := c.Get(ctx, "/app", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
