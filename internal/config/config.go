// Package config loads the settings shared by the olam binaries from flags,
// OLAM_* environment variables and an optional YAML file, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tinytelemetry/olam/internal/apiclient"
	"github.com/tinytelemetry/olam/internal/kvstore"
	"github.com/tinytelemetry/olam/internal/model"
	"github.com/tinytelemetry/olam/internal/normalize"
	"github.com/tinytelemetry/olam/internal/store"
)

// Config is the runtime configuration of a client binary.
type Config struct {
	BaseURL         string        `mapstructure:"base-url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	ChatTimeout     time.Duration `mapstructure:"chat-timeout"`
	StorageBackend  string        `mapstructure:"storage-backend"`
	StoragePath     string        `mapstructure:"storage-path"`
	TimestampLayout string        `mapstructure:"timestamp-layout"`
	Timezone        string        `mapstructure:"timezone"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFile         string        `mapstructure:"log-file"`
	StaleDiscard    bool          `mapstructure:"stale-discard"`
	Skin            string        `mapstructure:"skin"`
	StartPath       string        `mapstructure:"start-path"`
	SnapshotPath    string        `mapstructure:"snapshot-path"`
	ConfigPath      string        `mapstructure:"-"` // not from config file
}

// Dir returns ~/.config/olam.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "olam"), nil
}

// RegisterFlags adds the shared flags to fs. Only flags the user sets
// override the environment and the config file.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "config file (default is $HOME/.config/olam/config.yml)")
	fs.String("base-url", model.DefaultBaseURL, "analytics backend base URL")
	fs.Duration("timeout", model.DefaultTimeout, "request timeout")
	fs.Duration("chat-timeout", model.DefaultChatTimeout, "assistant request timeout")
	fs.String("storage-backend", kvstore.BackendFile, "settings storage: file or sqlite")
	fs.String("storage-path", "", "settings directory (file) or database (sqlite)")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-file", "", "write logs to this file instead of stderr")
	fs.Bool("stale-discard", false, "drop responses superseded by a newer request")
}

// Load reads the configuration. fs may be nil.
func Load(fs *pflag.FlagSet) (Config, error) {
	var cfg Config

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}
	dir := filepath.Join(home, ".config", "olam")
	dataDir := filepath.Join(home, ".local", "share", "olam")

	v := viper.New()
	v.SetEnvPrefix("OLAM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("base-url", model.DefaultBaseURL)
	v.SetDefault("timeout", model.DefaultTimeout)
	v.SetDefault("chat-timeout", model.DefaultChatTimeout)
	v.SetDefault("storage-backend", kvstore.BackendFile)
	v.SetDefault("storage-path", "")
	v.SetDefault("timestamp-layout", model.DefaultTimestampLayout)
	v.SetDefault("timezone", "Local")
	v.SetDefault("log-level", "info")
	v.SetDefault("log-file", "")
	v.SetDefault("stale-discard", false)
	v.SetDefault("skin", model.DefaultSkin)
	v.SetDefault("start-path", "/")
	v.SetDefault("snapshot-path", filepath.Join(dataDir, "snapshots.duckdb"))

	configPath := ""
	if fs != nil {
		if err := bindChanged(v, fs); err != nil {
			return cfg, err
		}
		if f := fs.Lookup("config"); f != nil {
			configPath = f.Value.String()
		}
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(dir, "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.StoragePath == "" {
		if cfg.StorageBackend == kvstore.BackendSQLite {
			cfg.StoragePath = filepath.Join(dataDir, "settings.db")
		} else {
			cfg.StoragePath = filepath.Join(dataDir, "settings")
		}
	}
	cfg.StoragePath = expandHome(cfg.StoragePath, home)
	cfg.SnapshotPath = expandHome(cfg.SnapshotPath, home)
	cfg.LogFile = expandHome(cfg.LogFile, home)

	if cfg.Timeout <= 0 {
		return cfg, fmt.Errorf("invalid timeout: %s", cfg.Timeout)
	}
	if cfg.ChatTimeout <= 0 {
		return cfg, fmt.Errorf("invalid chat-timeout: %s", cfg.ChatTimeout)
	}
	if _, err := cfg.Location(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// bindChanged binds only the flags set on the command line, so unset flags
// do not shadow the environment or the config file.
func bindChanged(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || err != nil {
			return
		}
		err = v.BindPFlag(f.Name, f)
	})
	return err
}

func expandHome(p, home string) string {
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

// Location returns the configured display time zone.
func (c Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Formatter returns the timestamp formatter for display.
func (c Config) Formatter() normalize.Formatter {
	loc, err := c.Location()
	if err != nil {
		loc = time.Local
	}
	return normalize.Formatter{Layout: c.TimestampLayout, Location: loc}
}

// ClientOptions returns the apiclient options for c.
func (c Config) ClientOptions() []apiclient.Option {
	return []apiclient.Option{
		apiclient.WithTimeout(c.Timeout),
		apiclient.WithChatTimeout(c.ChatTimeout),
	}
}

// StoreOptions returns the store options for c.
func (c Config) StoreOptions() []store.Option {
	opts := []store.Option{store.WithFormatter(c.Formatter())}
	if c.StaleDiscard {
		opts = append(opts, store.WithStaleDiscard())
	}
	return opts
}
