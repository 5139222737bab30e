package octokit

import "time"

// Rate is one quota as reported by GET /rate_limit.
type Rate struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	Reset     int64  `json:"reset"`
	Resource  string `json:"resource,omitempty"`
}

// ResetAt is when the quota refills.
func (r Rate) ResetAt() time.Time {
	return time.Unix(r.Reset, 0)
}

// RateLimits is the GET /rate_limit response.
type RateLimits struct {
	Resources map[string]Rate `json:"resources"`
	Rate      Rate            `json:"rate"`
}

// Core is the quota most REST calls count against.
func (r *RateLimits) Core() Rate {
	if core, ok := r.Resources["core"]; ok {
		return core
	}
	return r.Rate
}

// Account is the owner of an app.
type Account struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Type  string `json:"type"`
}

// App is the GET /app response.
type App struct {
	ID          int64             `json:"id"`
	Slug        string            `json:"slug"`
	Name        string            `json:"name"`
	Owner       Account           `json:"owner"`
	HTMLURL     string            `json:"html_url"`
	Permissions map[string]string `json:"permissions"`
	Events      []string          `json:"events"`
	CreatedAt   time.Time         `json:"created_at"`
}
