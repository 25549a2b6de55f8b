// Package config loads the process-level configuration for chatpanel.
//
// Values come from built-in defaults, then an optional TOML file, then command
// line flags. User-editable chat settings (endpoint, system prompt, display
// options) are not part of this; they live in the settings store.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config holds application configuration
type Config struct {
	APIURL             string `toml:"api_url"`   // Overrides the saved apiUrl for this run when set
	Store              string `toml:"store"`     // Settings backend: sqlite|file|memory
	DataDir            string `toml:"data_dir"`  // Where the database / settings file live
	LogDir             string `toml:"log_dir"`   // Rotated log and telemetry files, <data_dir>/logs when empty
	Debug              bool   `toml:"debug"`     // Debug level logging
	Render             bool   `toml:"render"`    // Render bot replies as markdown in the terminal
	Telemetry          bool   `toml:"telemetry"` // Export traces and metrics to LogDir
	RequestTimeoutSecs int    `toml:"request_timeout_secs"`
}

// Default returns the built-in configuration
func Default() Config {
	dataDir := ".chatpanel"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".chatpanel")
	}
	return Config{
		Store:              StoreSQLite,
		DataDir:            dataDir,
		Telemetry:          true,
		RequestTimeoutSecs: 60,
	}
}

// DefaultPath returns the config file looked up when none is given
func DefaultPath() string {
	return filepath.Join(Default().DataDir, "config.toml")
}

// Load reads path over the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks enumerated and numeric fields
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("unknown store: %s (sqlite|file|memory)", c.Store)
	}
	if c.RequestTimeoutSecs < 0 {
		return fmt.Errorf("request_timeout_secs must not be negative")
	}
	return nil
}

// RequestTimeout is the per-request HTTP timeout; zero disables it
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// LogPath is the directory logs and telemetry are written to
func (c Config) LogPath() string {
	if c.LogDir != "" {
		return c.LogDir
	}
	return filepath.Join(c.DataDir, "logs")
}

// DatabasePath is the SQLite file used by the sqlite store and the transcript archive
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "chatpanel.db")
}

// SettingsFilePath is the JSON file used by the file store
func (c Config) SettingsFilePath() string {
	return filepath.Join(c.DataDir, "settings.json")
}
