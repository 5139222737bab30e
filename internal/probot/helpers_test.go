package probot

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/stretchr/testify/require"
)

// logSink collects JSON log records for assertions.
type logSink struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *logSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func newLogSink() (*logSink, *slog.Logger) {
	sink := &logSink{}
	return sink, slogx.New(slogx.Config{Level: "debug", Output: sink})
}

func (s *logSink) records(t *testing.T) []map[string]any {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(s.buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		out = append(out, rec)
	}
	return out
}

// warnings returns the warn-level records only.
func (s *logSink) warnings(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, rec := range s.records(t) {
		if rec["level"] == "WARN" {
			out = append(out, rec)
		}
	}
	return out
}
