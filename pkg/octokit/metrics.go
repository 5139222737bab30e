package octokit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the client-side Prometheus collectors. One Metrics may be
// shared by any number of clients.
type Metrics struct {
	Requests      *prometheus.CounterVec
	RequestErrors *prometheus.CounterVec
	ThrottleWait  *prometheus.HistogramVec
	RateLimitHits *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octokit_requests_total",
			Help: "GitHub API requests by method and response status.",
		}, []string{"method", "status"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octokit_request_errors_total",
			Help: "GitHub API requests that failed before a response arrived.",
		}, []string{"method"}),
		ThrottleWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "octokit_throttle_wait_seconds",
			Help:    "Time spent waiting on the throttle limiter.",
			Buckets: prometheus.DefBuckets,
		}, []string{"group"}),
		RateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octokit_rate_limit_hits_total",
			Help: "Responses reporting an exhausted rate limit.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.Requests, m.RequestErrors, m.ThrottleWait, m.RateLimitHits)
	}
	return m
}

func (m *Metrics) observeWait(group string, d time.Duration) {
	if m == nil {
		return
	}
	m.ThrottleWait.WithLabelValues(group).Observe(d.Seconds())
}

func (m *Metrics) incRateLimit(secondary bool) {
	if m == nil {
		return
	}
	kind := "primary"
	if secondary {
		kind = "secondary"
	}
	m.RateLimitHits.WithLabelValues(kind).Inc()
}

// metricsTransport counts every round trip.
type metricsTransport struct {
	metrics *Metrics
	next    http.RoundTripper
}

func (t *metricsTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(r)
	if err != nil {
		t.metrics.RequestErrors.WithLabelValues(r.Method).Inc()
		return nil, err
	}
	t.metrics.Requests.WithLabelValues(r.Method, strconv.Itoa(resp.StatusCode)).Inc()
	return resp, nil
}
