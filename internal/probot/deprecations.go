package probot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/slogx"
)

// obsoleteEnv lists variables that no longer do anything, with the release
// that removed them.
var obsoleteEnv = []struct {
	name      string
	removedIn string
}{
	{"DISABLE_STATS", "v10"},
	{"IGNORED_ACCOUNTS", "v10"},
}

// LogObsoleteEnvWarnings warns once for every retired variable present in
// env. Presence is what counts, an empty value still warns.
func LogObsoleteEnvWarnings(log *slog.Logger, env envx.Env) {
	log = slogx.OrDiscard(log)
	for _, v := range obsoleteEnv {
		if !env.Has(v.name) {
			continue
		}
		log.LogAttrs(context.Background(), slog.LevelWarn,
			fmt.Sprintf("[probot] %q has been removed in %s", v.name, v.removedIn),
			slog.String("variable", v.name),
			slog.String("removed_in", v.removedIn),
		)
	}
}
