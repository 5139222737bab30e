package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aussiebroadwan/probot/internal/probot"
	"github.com/aussiebroadwan/probot/pkg/envx"
	"github.com/aussiebroadwan/probot/pkg/slogx"
	"github.com/gregjones/httpcache/diskcache"
	"github.com/spf13/cobra"
)

// rootFlags are the persistent flags shared by every subcommand.
type rootFlags struct {
	configFile string
	logLevel   string
	cacheDir   string
	timeout    time.Duration
}

func newRootCmd(environ []string) *cobra.Command {
	env := envx.FromPairs(environ)
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "probot",
		Short: "Talk to the GitHub API as a GitHub App",
		Long: `probot builds a GitHub API client from the same configuration a Probot
app uses (APP_ID, PRIVATE_KEY, GITHUB_TOKEN, REDIS_URL, GHE_HOST, ...) and
runs one-off requests with it.`,
		Version:       fmt.Sprintf("%s (commit: %s, built at: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configFile, "config", "", "Config file path (default: $PROBOT_CONFIG)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flags.cacheDir, "cache-dir", defaultCacheDir(env), "Directory for conditional request caching (default: $PROBOT_CACHE_DIR or the user cache dir)")
	root.PersistentFlags().DurationVar(&flags.timeout, "timeout", 30*time.Second, "Request timeout")

	root.AddCommand(
		newRateLimitCmd(env, flags),
		newGetCmd(env, flags),
	)
	return root
}

// setup loads the configuration and builds the app, logging to the
// command's stderr. Callers must Close it.
func (f *rootFlags) setup(cmd *cobra.Command, env envx.Env) (*probot.Probot, error) {
	path := f.configFile
	if path == "" {
		path = env.Get("PROBOT_CONFIG")
	}

	cfg, err := probot.LoadConfigFile(path, env)
	if err != nil {
		return nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	log := slogx.New(slogx.Config{
		Service: "probot",
		Version: version,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Output:  cmd.ErrOrStderr(),
	})

	opts := probot.Options{Log: log}
	if f.cacheDir != "" {
		opts.HTTPCache = diskcache.New(f.cacheDir)
	}
	return probot.New(cfg, env, opts), nil
}

// defaultCacheDir keeps ETags between runs so --conditional-cache can
// revalidate what an earlier invocation fetched.
func defaultCacheDir(env envx.Env) string {
	if dir := env.Get("PROBOT_CACHE_DIR"); dir != "" {
		return dir
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "probot", "http")
}

func (f *rootFlags) context(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, f.timeout)
}
