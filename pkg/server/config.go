package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/marcwhitt/confab/pkg/credentials"
)

// Config holds server configuration. Flags in cmd/server override
// values loaded from a YAML config file.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`  // TCP bind address
	WSAddr      string `yaml:"ws_addr"`      // HTTP bind address for the WebSocket endpoint (empty = disabled)
	MetricsAddr string `yaml:"metrics_addr"` // HTTP bind address for /metrics (empty = disabled)
	UsersFile   string `yaml:"users_file"`   // credentials file of username:password lines
	UsersDB     string `yaml:"users_db"`     // SQLite user database; takes precedence over UsersFile
	LogLevel    string `yaml:"log_level"`    // debug, info, warn, error
	LogFormat   string `yaml:"log_format"`   // text or json
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr: ":12345",
		UsersFile:  "users.txt",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// LoadConfigFile reads a YAML config file over the defaults.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI flag
	if err != nil {
		return cfg, fmt.Errorf("server: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("server: parse config: %w", err)
	}
	return cfg, nil
}

// OpenCredentials loads the credential store the config points at. The
// store is loaded once, before the accept loop starts.
func (c Config) OpenCredentials() (credentials.Store, error) {
	if c.UsersDB != "" {
		return credentials.LoadSQLite(c.UsersDB)
	}
	return credentials.LoadFile(c.UsersFile)
}
