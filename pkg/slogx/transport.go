package slogx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/probot/pkg/idx"
)

// Transport wraps next so that every outbound request carries a request id
// and gets logged at debug level once the response (or error) is back. The
// contextual logger is attached to the request so lower layers can reuse it.
func Transport(base *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &loggingTransport{base: OrDiscard(base), next: next}
}

type loggingTransport struct {
	base *slog.Logger
	next http.RoundTripper
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()

	reqID := idx.New().String()
	ctx := WithRequestID(r.Context(), t.base, reqID)
	logger := FromContext(ctx).With(
		"method", r.Method,
		"url", r.URL.Redacted(),
	)
	r = r.WithContext(WithContext(ctx, logger))

	resp, err := t.next.RoundTrip(r)

	duration := time.Since(start).Milliseconds()
	if err != nil {
		logger.Debug("http_request_failed", "duration_ms", duration, "error", err)
		return nil, err
	}

	logger.Debug("http_request",
		"status", resp.StatusCode,
		"duration_ms", duration,
		"github_request_id", resp.Header.Get("X-GitHub-Request-Id"),
	)
	return resp, nil
}
