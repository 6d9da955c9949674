package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for forksync.
type Config struct {
	Providers    []ProviderConfig   `yaml:"providers"`
	Repositories []RepositoryConfig `yaml:"repositories"`
	Sync         SyncConfig         `yaml:"sync"`
}

// ProviderConfig describes a single Git hosting provider instance.
type ProviderConfig struct {
	Type      string          `yaml:"type"`  // "github", "gitlab"
	Token     string          `yaml:"token"` // Inline, ${ENV_VAR}, or file path
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig holds per-provider throttle ceilings.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	RequestsPerHour   int `yaml:"requests_per_hour"`
	MinIntervalMS     int `yaml:"min_interval_ms"`
}

// RepositoryConfig describes one local clone to keep in sync.
type RepositoryConfig struct {
	Name     string            `yaml:"name"`
	Path     string            `yaml:"path"`
	Upstream string            `yaml:"upstream"` // Optional; discovered via provider when empty
	Provider string            `yaml:"provider"` // Optional; matched from origin URL when empty
	Branch   string            `yaml:"branch"`   // Optional; defaults to the checked-out branch
	Options  map[string]string `yaml:"options"`
}

// SyncConfig holds batch-wide sync settings.
type SyncConfig struct {
	MaxWorkers       int         `yaml:"max_workers"`
	RateLimitDelayMS int         `yaml:"rate_limit_delay_ms"` // Inter-submission stagger
	ConflictStrategy string      `yaml:"conflict_strategy"`   // abort|ours|theirs|manual
	Push             bool        `yaml:"push"`
	Retry            RetryConfig `yaml:"retry"`
}

// RetryConfig selects and tunes the backoff policy.
type RetryConfig struct {
	Strategy    string `yaml:"strategy"` // exponential|linear
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelayMS int    `yaml:"base_delay_ms"`
	MaxDelayMS  int    `yaml:"max_delay_ms"`
	Jitter      bool   `yaml:"jitter"`
	TimeoutS    int    `yaml:"timeout_s"` // Overall per-call retry deadline; 0 disables
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

// Load reads and parses a configuration file, expanding environment
// variables, resolving token file paths and normalizing repository paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var cfg Config
	if unmarshalErr := yaml.Unmarshal(data, &cfg); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for i := range cfg.Providers {
		cfg.Providers[i].Token = resolveToken(cfg.Providers[i].Token)
	}
	for i := range cfg.Repositories {
		cfg.Repositories[i].Path = expandPath(cfg.Repositories[i].Path)
	}

	if validateErr := validate(&cfg); validateErr != nil {
		return nil, validateErr
	}

	return &cfg, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config"),
		)
	}

	patterns := []string{
		".forksync.yaml",
		".forksync.yml",
		"forksync.yaml",
		"forksync.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// MinInterval returns the configured spacing as a duration.
func (r RateLimitConfig) MinInterval() time.Duration {
	return time.Duration(r.MinIntervalMS) * time.Millisecond
}

// Stagger returns the inter-submission delay as a duration.
func (s SyncConfig) Stagger() time.Duration {
	return time.Duration(s.RateLimitDelayMS) * time.Millisecond
}

// BaseDelay returns the base backoff delay, defaulting to one second.
func (r RetryConfig) BaseDelay() time.Duration {
	if r.BaseDelayMS <= 0 {
		return time.Second
	}
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff cap, defaulting to 30 seconds.
func (r RetryConfig) MaxDelay() time.Duration {
	if r.MaxDelayMS <= 0 {
		return 30 * time.Second
	}
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// Timeout returns the overall retry deadline, zero when disabled.
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutS) * time.Second
}

// Attempts returns the retry budget, defaulting to three.
func (r RetryConfig) Attempts() int {
	if r.MaxAttempts <= 0 {
		return 3
	}
	return r.MaxAttempts
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// expandPath resolves a leading "~" against the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// validStrategies are the accepted conflict_strategy values.
var validStrategies = map[string]bool{
	"": true, "abort": true, "ours": true, "theirs": true, "manual": true,
}

// validate checks for required configuration values.
func validate(cfg *Config) error {
	if len(cfg.Repositories) == 0 {
		return errors.New("at least one repository must be configured")
	}

	for i, p := range cfg.Providers {
		if p.Type == "" {
			return fmt.Errorf("providers[%d].type is required", i)
		}
		if p.Token == "" {
			return fmt.Errorf(
				"providers[%d].token is required (set inline, via ${ENV_VAR}, or as file path)",
				i,
			)
		}
	}

	for i, r := range cfg.Repositories {
		if r.Path == "" {
			return fmt.Errorf("repositories[%d].path is required", i)
		}
		if r.Name == "" {
			return fmt.Errorf("repositories[%d].name is required", i)
		}
	}

	if !validStrategies[cfg.Sync.ConflictStrategy] {
		return fmt.Errorf(
			"sync.conflict_strategy must be one of abort, ours, theirs, manual (got %q)",
			cfg.Sync.ConflictStrategy,
		)
	}

	switch cfg.Sync.Retry.Strategy {
	case "", "exponential", "linear":
	default:
		return fmt.Errorf(
			"sync.retry.strategy must be exponential or linear (got %q)",
			cfg.Sync.Retry.Strategy,
		)
	}

	return nil
}
