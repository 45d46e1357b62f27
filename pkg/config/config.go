// Package config loads server settings through viper.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete ramblathon configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Flush   FlushConfig   `mapstructure:"flush"`
	Backup  BackupConfig  `mapstructure:"backup"`
	Session SessionConfig `mapstructure:"session"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the listener
type ServerConfig struct {
	// Addr is the host:port to listen on. Keep it on loopback: there is no
	// authentication.
	Addr string `mapstructure:"addr"`
}

// StorageConfig controls where the document and its backups live
type StorageConfig struct {
	BufferFile string `mapstructure:"buffer_file"`
	BackupDir  string `mapstructure:"backup_dir"`
}

type FlushConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type BackupConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	// CatalogPath is a sqlite database indexing the backups (empty = disabled)
	CatalogPath string `mapstructure:"catalog_path"`
}

// SessionConfig controls admission of writers
type SessionConfig struct {
	// StickyGate never reopens the gate once a session has been admitted,
	// so only the first session after start can ever write.
	StickyGate bool `mapstructure:"sticky_gate"`
}

// NotifyConfig controls fan-out of flushed text
type NotifyConfig struct {
	// RedisAddr enables publishing flushed chunks to redis (empty = disabled)
	RedisAddr string `mapstructure:"redis_addr"`
	Channel   string `mapstructure:"channel"`
}

// LoggingConfig controls log output
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// Format is "text" or "json" (default: "text")
	Format string `mapstructure:"format"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: "127.0.0.1:42069",
		},
		Storage: StorageConfig{
			BufferFile: filepath.Join("out", "buffer.txt"),
			BackupDir:  filepath.Join("out", "backup"),
		},
		Flush: FlushConfig{
			Interval: 30 * time.Second,
		},
		Backup: BackupConfig{
			Interval:    time.Hour,
			CatalogPath: "",
		},
		Session: SessionConfig{
			StickyGate: false,
		},
		Notify: NotifyConfig{
			RedisAddr: "",
			Channel:   "ramblathon",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("server.addr", defaults.Server.Addr)

	v.SetDefault("storage.buffer_file", defaults.Storage.BufferFile)
	v.SetDefault("storage.backup_dir", defaults.Storage.BackupDir)

	v.SetDefault("flush.interval", defaults.Flush.Interval)

	v.SetDefault("backup.interval", defaults.Backup.Interval)
	v.SetDefault("backup.catalog_path", defaults.Backup.CatalogPath)

	v.SetDefault("session.sticky_gate", defaults.Session.StickyGate)

	v.SetDefault("notify.redis_addr", defaults.Notify.RedisAddr)
	v.SetDefault("notify.channel", defaults.Notify.Channel)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ramblathon")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ramblathon"
	}
	return filepath.Join(home, ".config", "ramblathon")
}
