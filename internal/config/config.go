package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	pkgerrors "github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	defaultListen     = "127.0.0.1:8080"
	defaultTimezone   = "UTC"
	defaultDuration   = 60
	defaultLogLevel   = "info"
	defaultPrefsPath  = "prefs.yaml"
	defaultReloadCron = "*/5 * * * *"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of "debug", "info", "error".
	Level string `yaml:"level" json:"level"`
}

// ResolverConfig tunes the date/time resolver.
type ResolverConfig struct {
	// Fallback appends a general natural-language parser after the built-in
	// matchers. Off by default: unrecognized text yields no event.
	Fallback bool `yaml:"fallback" json:"fallback"`
}

// PrefsConfig locates the per-chat preference file.
type PrefsConfig struct {
	// Path of the YAML preference file. Relative paths are resolved against
	// the config file's directory.
	Path string `yaml:"path" json:"path"`

	// ReloadCron is a cron schedule (e.g. "*/5 * * * *") for re-reading the
	// file. Empty disables reloading.
	ReloadCron string `yaml:"reload_cron" json:"reload_cron"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used when a chat has none (e.g. "Asia/Singapore").
	Timezone string `yaml:"timezone" json:"timezone"`

	// DefaultDurationMinutes is the length of timed events.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" json:"default_duration_minutes"`

	Log      LogConfig      `yaml:"log" json:"log"`
	Resolver ResolverConfig `yaml:"resolver" json:"resolver"`
	Prefs    PrefsConfig    `yaml:"prefs" json:"prefs"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:                 defaultListen,
		Timezone:               defaultTimezone,
		DefaultDurationMinutes: defaultDuration,
		Log:                    LogConfig{Level: defaultLogLevel},
		Prefs: PrefsConfig{
			Path:       defaultPrefsPath,
			ReloadCron: defaultReloadCron,
		},
	}
}

// Normalize fills in missing/zero values so that partially-filled configs
// still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = defaultDuration
	}
	switch c.Log.Level {
	case "debug", "info", "error":
	default:
		c.Log.Level = defaultLogLevel
	}
	if c.Prefs.Path == "" {
		c.Prefs.Path = defaultPrefsPath
	}
	if c.BasicAuth != nil && c.BasicAuth.Username == "" && c.BasicAuth.Password == "" {
		c.BasicAuth = nil
	}
}

// Validate reports settings Normalize cannot repair.
func (c *Config) Validate() error {
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return pkgerrors.Wrapf(err, "invalid timezone %q", c.Timezone)
	}
	return nil
}

// PrefsPath returns Prefs.Path resolved against the directory of the config
// file at configPath.
func (c *Config) PrefsPath(configPath string) string {
	if filepath.IsAbs(c.Prefs.Path) || configPath == "" {
		return c.Prefs.Path
	}
	return filepath.Join(filepath.Dir(configPath), c.Prefs.Path)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults and validate
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, pkgerrors.Wrapf(err, "read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, pkgerrors.Wrapf(err, "parse config %s", path)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes cfg to path atomically (temp file + rename) with 0600
// permissions, creating the parent directory (0700) if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".msgcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method that delegates to the package-level Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
