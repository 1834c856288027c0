package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/jamesainslie/triage/pkg/triage/logging"
)

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSize    string `mapstructure:"max_size"`
	MaxAge     int    `mapstructure:"max_age"`
	MaxBackups int    `mapstructure:"max_backups"`
	Daily      bool   `mapstructure:"daily"`
}

// LoggingConfig configures application logging.
type LoggingConfig struct {
	Level      string            `mapstructure:"level"`
	Path       string            `mapstructure:"path"`
	Rotation   RotationConfig    `mapstructure:"rotation"`
	Components map[string]string `mapstructure:"components"`
}

// Options converts the file settings into logging.Config.
func (l LoggingConfig) Options() (logging.Config, error) {
	rotation := logging.DefaultRotationConfig()
	if l.Rotation.MaxSize != "" {
		size, err := humanize.ParseBytes(l.Rotation.MaxSize)
		if err != nil {
			return logging.Config{}, fmt.Errorf("parsing logging.rotation.max_size: %w", err)
		}
		rotation.MaxSize = int64(size)
	}
	rotation.MaxAge = l.Rotation.MaxAge
	rotation.MaxBackups = l.Rotation.MaxBackups
	rotation.Daily = l.Rotation.Daily

	return logging.Config{
		Level:      l.Level,
		Path:       l.Path,
		Rotation:   rotation,
		Components: l.Components,
	}, nil
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	// Secret signs session cookies. Empty generates a per-process secret,
	// which logs everyone out on restart.
	Secret    string        `mapstructure:"secret"`
	Cookie    string        `mapstructure:"cookie"`
	StorePath string        `mapstructure:"store_path"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// Config represents the application configuration.
type Config struct {
	Addr        string   `mapstructure:"addr"`
	DefaultRoot string   `mapstructure:"default_root"`
	Extensions  []string `mapstructure:"extensions"`
	HistorySize int      `mapstructure:"history_size"`
	RecentTags  int      `mapstructure:"recent_tags"`
	Watch       bool     `mapstructure:"watch"`
	Manifest    struct {
		Enabled       bool   `mapstructure:"enabled"`
		Path          string `mapstructure:"path"`
		RetentionDays int    `mapstructure:"retention_days"`
	} `mapstructure:"manifest"`
	Session SessionConfig `mapstructure:"session"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables.
// Config file locations (in order of precedence):
//   - $XDG_CONFIG_HOME/triage/config.yaml
//   - $HOME/.config/triage/config.yaml
//
// Environment variables are prefixed with TRIAGE_ (e.g., TRIAGE_ADDR).
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration into v, which may carry bound flags.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		v.AddConfigPath(filepath.Join(xdgConfigHome, "triage"))
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	v.AddConfigPath(filepath.Join(homeDir, ".config", "triage"))

	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, homeDir)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, p := range []*string{&cfg.Manifest.Path, &cfg.Session.StorePath, &cfg.DefaultRoot, &cfg.Logging.Path} {
		expanded, err := ExpandPath(*p)
		if err != nil {
			return nil, err
		}
		*p = expanded
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper, homeDir string) {
	v.SetDefault("addr", DefaultAddr)
	v.SetDefault("default_root", "")
	v.SetDefault("extensions", DefaultExtensions)
	v.SetDefault("history_size", DefaultHistorySize)
	v.SetDefault("recent_tags", DefaultRecentTags)
	v.SetDefault("watch", false)

	v.SetDefault("manifest.enabled", true)
	v.SetDefault("manifest.path", filepath.Join(homeDir, ".config", "triage", ".journal"))
	v.SetDefault("manifest.retention_days", DefaultRetentionDays)

	v.SetDefault("session.secret", "")
	v.SetDefault("session.cookie", DefaultSessionCookie)
	v.SetDefault("session.store_path", "") // Empty means DefaultStorePath
	v.SetDefault("session.ttl", DefaultSessionTTL)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.path", "")
	v.SetDefault("logging.rotation.max_size", "10MB")
	v.SetDefault("logging.rotation.max_age", 30)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.daily", true)
	v.SetDefault("logging.components", map[string]string{
		"server":    "info",
		"workspace": "info",
		"mover":     "info",
		"session":   "info",
		"watcher":   "warn",
		"tui":       "info",
	})
}

// ConfigDir returns the configuration directory path.
func ConfigDir() (string, error) {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "triage"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "triage"), nil
}

// ConfigPath returns the path of the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// WriteDefault writes a default config file if none exists and returns its
// path. An existing file is left untouched.
func WriteDefault() (string, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		return configPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to check config file: %w", err)
	}

	defaultConfig := fmt.Sprintf(`# triage configuration

# Address the web UI listens on
addr: %s

# Folder opened when none is given on the command line
default_root: ""

# Image extensions picked up from the root folder (case-sensitive)
extensions: [%s]

# Number of moves that can be undone
history_size: %d

# Number of recent tags offered for reuse
recent_tags: %d

# Rescan automatically when images appear or disappear
watch: false

# Journal of every classify and undo
manifest:
  enabled: true
  path: ~/.config/triage/.journal
  retention_days: %d

# Browser sessions
session:
  # Secret used to sign session cookies (empty generates one per run)
  secret: ""
  cookie: %s
  # Session database (empty means $XDG_DATA_HOME/triage/sessions)
  store_path: ""
  ttl: %s

# Logging configuration
logging:
  # Log level: debug, info, warn, error
  level: info
  # Log file path (empty means $XDG_STATE_HOME/triage/triage.log)
  path: ""
  rotation:
    max_size: 10MB
    max_age: 30       # days
    max_backups: 5
    daily: true
  components:
    server: info
    workspace: info
    mover: info
    session: info
    watcher: warn
    tui: info
`, DefaultAddr, strings.Join(DefaultExtensions, ", "), DefaultHistorySize, DefaultRecentTags,
		DefaultRetentionDays, DefaultSessionCookie, DefaultSessionTTL)

	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return "", fmt.Errorf("failed to write default config: %w", err)
	}
	return configPath, nil
}

// ExpandPath expands ~ in a path to the user's home directory.
func ExpandPath(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, path[1:]), nil
}

// DataDir returns $XDG_DATA_HOME/triage/ for the session store and pid file.
func DataDir() string {
	return filepath.Join(xdg.DataHome, "triage")
}

// StateDir returns $XDG_STATE_HOME/triage/ for log files.
func StateDir() string {
	return filepath.Join(xdg.StateHome, "triage")
}

// DefaultStorePath returns the default session database directory.
func DefaultStorePath() string {
	return filepath.Join(DataDir(), "sessions")
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return filepath.Join(DataDir(), "triage.pid")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	if err := os.MkdirAll(DataDir(), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}
