package probot

import (
	"errors"
	"fmt"
	"os"

	"github.com/aussiebroadwan/probot/pkg/cryptox"
	"github.com/aussiebroadwan/probot/pkg/envx"
	"gopkg.in/yaml.v3"
)

var (
	ErrMissingPrivateKey = errors.New("probot: APP_ID is set but no private key was found, set PRIVATE_KEY or PRIVATE_KEY_PATH")
	ErrMissingAppID      = errors.New("probot: a private key is set but APP_ID is missing")
)

type Config struct {
	AppID          int64  `yaml:"app_id"`           // Optional: GitHub App id
	PrivateKey     string `yaml:"private_key"`      // Optional: app private key, PEM, escaped PEM or base64
	PrivateKeyPath string `yaml:"private_key_path"` // Optional: file holding the private key
	GithubToken    string `yaml:"github_token"`     // Optional: token auth, wins over app auth

	BaseURL   string `yaml:"base_url"`   // Optional: REST root (default: https://api.github.com)
	UserAgent string `yaml:"user_agent"` // Optional: User-Agent header (default: probot-go)
	RedisURL  string `yaml:"redis_url"`  // Optional: share throttling through Redis

	// ConditionalCache revalidates cached GET responses with ETags.
	ConditionalCache bool `yaml:"conditional_cache"`

	Env       string `yaml:"env"`        // Environment (dev, staging, prod) (default: dev)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: info)
	LogFormat string `yaml:"log_format"` // Log format (json, text) (default: json)
}

// LoadConfig reads the YAML file named by PROBOT_CONFIG (if any), then
// fills every field the file left blank from env.
func LoadConfig(env envx.Env) (Config, error) {
	return LoadConfigFile(env.Get("PROBOT_CONFIG"), env)
}

// LoadConfigFile is LoadConfig with an explicit file path, empty means no
// file.
func LoadConfigFile(path string, env envx.Env) (Config, error) {
	var cfg Config

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("probot: read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("probot: parse config %s: %w", path, err)
		}
	}

	cfg.fillFromEnv(env)

	if err := cfg.resolvePrivateKey(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) fillFromEnv(env envx.Env) {
	setString := func(dst *string, key, def string) {
		if *dst == "" {
			*dst = env.GetOrDefault(key, def)
		}
	}

	if c.AppID == 0 {
		c.AppID = env.GetInt64("APP_ID", 0)
	}
	setString(&c.PrivateKey, "PRIVATE_KEY", "")
	setString(&c.PrivateKeyPath, "PRIVATE_KEY_PATH", "")
	setString(&c.GithubToken, "GITHUB_TOKEN", "")
	setString(&c.BaseURL, "BASE_URL", "")
	setString(&c.UserAgent, "USER_AGENT", "")
	setString(&c.RedisURL, "REDIS_URL", "")
	setString(&c.Env, "ENV", "dev")
	setString(&c.LogLevel, "LOG_LEVEL", "info")
	setString(&c.LogFormat, "LOG_FORMAT", "json")

	if !c.ConditionalCache {
		c.ConditionalCache = env.GetBool("CONDITIONAL_CACHE", false)
	}
}

// resolvePrivateKey loads PrivateKeyPath when no inline key is given and
// normalises whatever key we end up with to plain PEM. With a token the app
// credentials are never used, so they are not read at all.
func (c *Config) resolvePrivateKey() error {
	if c.GithubToken != "" {
		return nil
	}

	if c.PrivateKey == "" && c.PrivateKeyPath != "" {
		raw, err := os.ReadFile(c.PrivateKeyPath)
		if err != nil {
			return fmt.Errorf("probot: read private key: %w", err)
		}
		c.PrivateKey = string(raw)
	}

	key, err := cryptox.NormalizePrivateKey(c.PrivateKey)
	if err != nil {
		return fmt.Errorf("probot: private key: %w", err)
	}
	c.PrivateKey = key
	return nil
}

// Validate checks the app credentials are complete. Token auth and no
// auth at all are both valid.
func (c Config) Validate() error {
	if c.GithubToken != "" {
		return nil
	}
	if c.AppID != 0 && c.PrivateKey == "" {
		return ErrMissingPrivateKey
	}
	if c.AppID == 0 && c.PrivateKey != "" {
		return ErrMissingAppID
	}
	return nil
}
