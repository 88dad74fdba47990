// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duet Contributors

// Package config loads duet's configuration.
//
// Sources are layered, later ones winning: built-in defaults, a YAML file,
// DUET_* environment variables (a double underscore separates levels, so
// DUET_STORE__DATABASE_URL sets store.database_url), then command-line flags
// that were explicitly set.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/duetrooms/duet/internal/xdg"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DUET_"

// MinJWTSecretLength is the shortest accepted auth.jwt_secret.
const MinJWTSecretLength = 32

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// Config is the full service configuration.
type Config struct {
	HTTP    HTTPConfig    `koanf:"http"`
	Metrics MetricsConfig `koanf:"metrics"`
	Log     LogConfig     `koanf:"log"`
	Store   StoreConfig   `koanf:"store"`
	Auth    AuthConfig    `koanf:"auth"`
	Rooms   RoomsConfig   `koanf:"rooms"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	RequestTimeout    time.Duration `koanf:"request_timeout"`
}

// MetricsConfig configures the observability listener. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// LogConfig configures logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// StoreConfig selects and configures the storage backend.
type StoreConfig struct {
	Driver          string `koanf:"driver"`
	DatabaseURL     string `koanf:"database_url"`
	BadgerDir       string `koanf:"badger_dir"`
	BadgerInMemory  bool   `koanf:"badger_in_memory"`
	ConnectAttempts uint64 `koanf:"connect_attempts"`
	AutoMigrate     bool   `koanf:"auto_migrate"`
}

// AuthConfig configures token signing.
type AuthConfig struct {
	JWTSecret string `koanf:"jwt_secret"`
}

// RoomsConfig configures room admission.
type RoomsConfig struct {
	// MaxOccupants caps users per room. Zero means no cap.
	MaxOccupants int `koanf:"max_occupants"`
}

// Defaults returns the built-in configuration layer.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":8000",
		"http.read_header_timeout": "10s",
		"http.request_timeout":     "15s",
		"metrics.addr":             "127.0.0.1:9100",
		"log.format":               "json",
		"log.level":                "info",
		"store.driver":             DriverBadger,
		"store.badger_dir":         filepath.Join(xdg.DataDir(), "badger"),
		"store.badger_in_memory":   false,
		"store.connect_attempts":   10,
		"store.auto_migrate":       true,
		"rooms.max_occupants":      0,
	}
}

// DefaultFile returns the config file read when none is given explicitly.
func DefaultFile() string {
	return filepath.Join(xdg.ConfigDir(), "config.yaml")
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"http-addr":        "http.addr",
	"metrics-addr":     "metrics.addr",
	"log-format":       "log.format",
	"log-level":        "log.level",
	"store-driver":     "store.driver",
	"database-url":     "store.database_url",
	"badger-dir":       "store.badger_dir",
	"badger-in-memory": "store.badger_in_memory",
	"auto-migrate":     "store.auto_migrate",
	"max-occupants":    "rooms.max_occupants",
}

// RegisterFlags adds the flags Load understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", "", "public API listen address")
	fs.String("metrics-addr", "", "metrics/health listen address (empty disables)")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("store-driver", "", "storage backend (postgres or badger)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("badger-dir", "", "Badger data directory")
	fs.Bool("badger-in-memory", false, "keep Badger data in memory only")
	fs.Bool("auto-migrate", true, "apply PostgreSQL migrations at startup")
	fs.Int("max-occupants", 0, "maximum users per room (0 = unlimited)")
}

// LoadOptions tells Load where to look.
type LoadOptions struct {
	// File is an explicit config file; it must exist. When empty,
	// DefaultFile is read if present.
	File string
	// Flags, when set, contributes every flag the user changed.
	Flags *pflag.FlagSet
	// StoreOnly validates just the store section, for commands that never
	// serve traffic.
	StoreOnly bool
}

// Load assembles and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "defaults").Wrap(err)
	}

	path, required := opts.File, true
	if path == "" {
		path, required = DefaultFile(), false
	}
	if err := loadFile(k, path, required); err != nil {
		return nil, err
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if opts.Flags != nil {
		provider := posflag.ProviderWithFlag(opts.Flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(opts.Flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	validate := cfg.Validate
	if opts.StoreOnly {
		validate = cfg.ValidateStore
	}
	if err := validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(k *koanf.Koanf, path string, required bool) error {
	if !required {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").
			With("source", "file").
			With("path", path).
			Wrap(err)
	}
	return nil
}

// envKey turns DUET_STORE__DATABASE_URL into store.database_url.
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func invalid(key, reason string) error {
	return oops.Code("CONFIG_INVALID").With("key", key).Errorf("%s: %s", key, reason)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return invalid("http.addr", "must not be empty")
	}
	if c.HTTP.ReadHeaderTimeout <= 0 {
		return invalid("http.read_header_timeout", "must be positive")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return invalid("http.request_timeout", "must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return invalid("log.format", "must be json or text")
	}
	if err := c.ValidateStore(); err != nil {
		return err
	}
	if len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return invalid("auth.jwt_secret", "must be at least 32 bytes")
	}
	if c.Rooms.MaxOccupants < 0 {
		return invalid("rooms.max_occupants", "must not be negative")
	}
	return nil
}

// ValidateStore reports the first invalid store setting.
func (c *Config) ValidateStore() error {
	switch c.Store.Driver {
	case DriverPostgres:
		if c.Store.DatabaseURL == "" {
			return invalid("store.database_url", "required for the postgres driver")
		}
	case DriverBadger:
		if !c.Store.BadgerInMemory && c.Store.BadgerDir == "" {
			return invalid("store.badger_dir", "required unless store.badger_in_memory is set")
		}
	default:
		return invalid("store.driver", "must be postgres or badger")
	}
	return nil
}
