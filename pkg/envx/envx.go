package envx

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Env is a read-only snapshot of process configuration. Nothing in this
// module reads os.Getenv directly, callers pass an Env instead so tests can
// hand in synthetic values without touching the process.
type Env map[string]string

// FromOS snapshots the current process environment.
func FromOS() Env {
	return FromPairs(os.Environ())
}

// FromPairs builds an Env from KEY=VALUE entries. Entries without '=' are
// recorded with an empty value.
func FromPairs(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		key, value, _ := strings.Cut(kv, "=")
		if key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

// Has reports whether key is present at all, an empty value still counts.
func (e Env) Has(key string) bool {
	_, ok := e[key]
	return ok
}

// Get returns the value for key or "" when absent.
func (e Env) Get(key string) string {
	return e[key]
}

// GetOrDefault treats empty values the same as missing ones.
func (e Env) GetOrDefault(key, defaultValue string) string {
	if value := e[key]; value != "" {
		return value
	}
	return defaultValue
}

func (e Env) GetInt(key string, defaultValue int) int {
	value := e[key]
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func (e Env) GetInt64(key string, defaultValue int64) int64 {
	value := e[key]
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
		return intValue
	}

	return defaultValue
}

// GetBool accepts anything strconv.ParseBool does ("1", "true", "TRUE",
// "f", ...).
func (e Env) GetBool(key string, defaultValue bool) bool {
	value := e[key]
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

// GetDuration accepts Go duration strings ("90s", "1h") and falls back to
// plain integers as minutes.
func (e Env) GetDuration(key string, defaultValue time.Duration) time.Duration {
	value := e[key]
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
