// Package config loads gitalky's configuration: model provider settings,
// confirmation and logging toggles, and the git execution timeout.
// Configuration is loaded from (highest to lowest priority):
//  1. The environment variable named by APIKeyEnvVar (the API key only;
//     no other field is read from the environment)
//  2. The TOML config file at $XDG_CONFIG_HOME/gitalky/config.toml
//  3. Defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default values, used when neither the config file nor the environment
// sets a field.
const (
	defaultProvider     = "anthropic"
	defaultModel        = "claude-3-5-sonnet-20241022"
	defaultAPIKeyEnvVar = "ANTHROPIC_API_KEY"
	defaultGitTimeout   = 30 * time.Second

	configDirName    = "gitalky"
	configFileName   = "config.toml"
	auditLogFileName = "history.log"
)

// Config holds gitalky's resolved configuration.
type Config struct {
	// Provider names the model backend, e.g. "anthropic".
	Provider string `toml:"provider"`

	// Model is the concrete model identifier sent in each request.
	Model string `toml:"model"`

	// APIKeyEnvVar names the environment variable holding the API key.
	// Preferred over APIKey.
	APIKeyEnvVar string `toml:"api_key_env_var"`

	// APIKey is an inline API key, used only if the variable named by
	// APIKeyEnvVar is unset. Storing a key in the config file is
	// discouraged but supported.
	APIKey string `toml:"api_key,omitempty"`

	// ConfirmDangerous gates dangerous commands behind the literal
	// confirmation word. Release builds never allow this to be false;
	// Resolve enforces that regardless of what the file says.
	ConfirmDangerous bool `toml:"confirm_dangerous"`

	// LogExecutions enables the audit logger.
	LogExecutions bool `toml:"log_executions"`

	// GitTimeoutSeconds bounds each git invocation.
	GitTimeoutSeconds int `toml:"git_timeout_seconds"`
}

// Default returns gitalky's built-in configuration.
func Default() *Config {
	return &Config{
		Provider:          defaultProvider,
		Model:             defaultModel,
		APIKeyEnvVar:      defaultAPIKeyEnvVar,
		ConfirmDangerous:  true,
		LogExecutions:     true,
		GitTimeoutSeconds: int(defaultGitTimeout.Seconds()),
	}
}

// Load reads the TOML config file at Path, overlays it onto Default, and
// applies Resolve (the API-key environment override). A missing config file is not an error;
// Load falls back to Default. A present-but-unreadable or malformed file
// is an error: the caller's first-run fallback needs to tell "absent"
// apart from "broken".
func Load() (*Config, error) {
	cfg := Default()

	path := Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Resolve(cfg), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var fromFile Config
	if err := toml.Unmarshal(data, &fromFile); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	merge(cfg, &fromFile)

	return Resolve(cfg), nil
}

// merge overlays the non-zero fields of src onto dst.
func merge(dst, src *Config) {
	if src.Provider != "" {
		dst.Provider = src.Provider
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.APIKeyEnvVar != "" {
		dst.APIKeyEnvVar = src.APIKeyEnvVar
	}
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
	if src.GitTimeoutSeconds != 0 {
		dst.GitTimeoutSeconds = src.GitTimeoutSeconds
	}
	// ConfirmDangerous and LogExecutions: gitalky always writes both
	// fields when it writes a config file (see Write), so a freshly
	// parsed file is never missing them; OR-merge keeps a hand-edited
	// file that dropped a line from silently disabling either.
	dst.ConfirmDangerous = dst.ConfirmDangerous || src.ConfirmDangerous
	dst.LogExecutions = dst.LogExecutions || src.LogExecutions
}

// Resolve applies the environment-preferred API-key rule and the
// release-build confirmation floor to cfg and returns it.
func Resolve(cfg *Config) *Config {
	if cfg.APIKeyEnvVar != "" {
		if v := os.Getenv(cfg.APIKeyEnvVar); v != "" {
			cfg.APIKey = v
		}
	}
	cfg.ConfirmDangerous = true
	return cfg
}

// GitTimeout returns GitTimeoutSeconds as a Duration.
func (c *Config) GitTimeout() time.Duration {
	return time.Duration(c.GitTimeoutSeconds) * time.Second
}

// Dir returns the directory holding both the config file and the audit
// log, honoring $XDG_CONFIG_HOME and falling back to ~/.config.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, configDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return configDirName
	}
	return filepath.Join(home, ".config", configDirName)
}

// Path returns the config file's full path.
func Path() string {
	return filepath.Join(Dir(), configFileName)
}

// AuditLogPath returns the audit log's full path.
func AuditLogPath() string {
	return filepath.Join(Dir(), auditLogFileName)
}

// Write serializes cfg as TOML to Path, creating the parent directory
// (mode 0700) and the file itself (mode 0600) as needed.
func Write(cfg *Config) error {
	if err := os.MkdirAll(Dir(), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(Path(), data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
