package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the process-wide settings store. Token, DatabaseID and
// DataSourceID gate the remote query adapter: queries fail fast with a
// typed error while any of them is missing.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Token is the integration token for the remote workspace API.
	Token string `yaml:"token" json:"token"`

	// DatabaseID is the container new records are created in.
	DatabaseID string `yaml:"database_id" json:"database_id"`

	// DataSourceID is the source queried for the weekly view and the
	// daily reminder.
	DataSourceID string `yaml:"data_source_id" json:"data_source_id"`

	// RefreshCron is a cron-style schedule string used to invalidate the
	// cached weekly view so the next render re-queries the remote source.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// ReminderHour is the local hour (0-23) of the daily reminder check.
	ReminderHour int `yaml:"reminder_hour" json:"reminder_hour"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		RefreshCron:  "0 * * * *",
		ReminderHour: 23,
	}
}

// Normalize fills missing values with defaults and falls back to the
// process environment for absent credentials, matching the behavior of
// the settings store this replaces.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "0 * * * *"
	}
	if c.ReminderHour < 0 || c.ReminderHour > 23 {
		c.ReminderHour = 23
	}
	if c.Token == "" {
		c.Token = os.Getenv("NOTION_TOKEN")
	}
	if c.DatabaseID == "" {
		c.DatabaseID = os.Getenv("NOTION_DATABASE_ID")
	}
	if c.DataSourceID == "" {
		c.DataSourceID = os.Getenv("NOTION_DATA_SOURCE_ID")
	}
}

// DefaultPath returns the per-user config file location,
// ~/.notioncal/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".notioncal", "config.yaml"), nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist: create parent directory if needed,
//     write a default config with 0600 perms, return the default config.
//   - If the file exists: read YAML, unmarshal, normalize defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			cfg.Normalize()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the configuration to path atomically (temp file + rename)
// with 0600 permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".notioncal-config-*.tmp")
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
