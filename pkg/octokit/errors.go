package octokit

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

var (
	ErrMissingPrivateKey = errors.New("octokit: app auth requires a private key")
	ErrMissingAppID      = errors.New("octokit: app auth requires an app id")
)

// FieldError is one entry of the "errors" array GitHub attaches to 422
// responses.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
	Message  string `json:"message,omitempty"`
}

// RequestError is a non-2xx response from the API.
type RequestError struct {
	StatusCode       int
	Method           string
	URL              string
	Message          string
	DocumentationURL string
	Errors           []FieldError

	// RequestID is GitHub's X-GitHub-Request-Id, quote it in support tickets.
	RequestID string
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("octokit: %s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
}

// RateLimitError is returned instead of a RequestError when the response
// says a rate limit was hit. The request is not retried.
type RateLimitError struct {
	*RequestError

	// Secondary is true for abuse / concurrency limits, false when the
	// hourly quota is exhausted.
	Secondary bool

	// RetryAfter is how long GitHub asked us to back off.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	kind := "primary"
	if e.Secondary {
		kind = "secondary"
	}
	return fmt.Sprintf("octokit: %s rate limit hit for %s %s, retry after %s",
		kind, e.Method, e.URL, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return e.RequestError }

// errorResponse is GitHub's JSON error body.
type errorResponse struct {
	Message          string       `json:"message"`
	DocumentationURL string       `json:"documentation_url"`
	Errors           []FieldError `json:"errors"`
}

// parseErrorResponse builds a typed error for a non-2xx response. body may
// be empty or not JSON, the status alone is enough then.
func parseErrorResponse(resp *http.Response, body []byte) *RequestError {
	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("X-GitHub-Request-Id"),
	}
	if resp.Request != nil {
		reqErr.Method = resp.Request.Method
		reqErr.URL = resp.Request.URL.Redacted()
	}

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		reqErr.Message = errResp.Message
		reqErr.DocumentationURL = errResp.DocumentationURL
		reqErr.Errors = errResp.Errors
	}
	return reqErr
}

var secondaryMessage = regexp.MustCompile(`(?i)\bsecondary rate\b`)

// defaultSecondaryRetryAfter is used when a secondary limit response omits
// Retry-After.
const defaultSecondaryRetryAfter = time.Minute

// rateLimitError classifies reqErr, returning nil when it is not a rate
// limit.
func rateLimitError(resp *http.Response, reqErr *RequestError, now time.Time) *RateLimitError {
	if resp.StatusCode != http.StatusForbidden && resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	retryAfter, hasRetryAfter := parseRetryAfter(resp.Header.Get("Retry-After"), now)
	if hasRetryAfter || secondaryMessage.MatchString(reqErr.Message) {
		if !hasRetryAfter {
			retryAfter = defaultSecondaryRetryAfter
		}
		return &RateLimitError{RequestError: reqErr, Secondary: true, RetryAfter: retryAfter}
	}

	if resp.Header.Get("X-RateLimit-Remaining") == "0" {
		var wait time.Duration
		if reset, err := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64); err == nil {
			wait = max(time.Unix(reset, 0).Sub(now), 0)
		}
		return &RateLimitError{RequestError: reqErr, RetryAfter: wait.Round(time.Second)}
	}

	return nil
}

// parseRetryAfter accepts either delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(max(secs, 0)) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		return max(t.Sub(now), 0), true
	}
	return 0, false
}
