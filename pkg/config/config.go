// Package config loads and validates the wirecache daemon configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (WIRECACHE_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// An environment variable overrides only a key that the configuration file
// sets. When no configuration file is found, the defaults are used as they
// are and the environment is not read.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/wirecache/internal/bytesize"
)

// Config represents the wirecache daemon configuration.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Server configures the TCP cache server
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	// Metrics configures the Prometheus observability endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Snapshot configures namespace persistence
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`

	// Namespaces declares the caches the daemon serves
	Namespaces []NamespaceConfig `mapstructure:"namespaces" yaml:"namespaces" validate:"dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR"`

	// Format specifies the log output format (text or json)
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output is "stdout", "stderr", or a file path
	Output string `mapstructure:"output" yaml:"output"`
}

// ServerConfig configures the TCP listener.
type ServerConfig struct {
	// BindAddress is the IP address to bind to; empty binds all interfaces
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port is the TCP port to listen on
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`

	// MaxConnections limits concurrent client connections; 0 is unlimited
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" validate:"min=0"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required,gt=0"`
}

// MetricsConfig configures the observability HTTP server.
type MetricsConfig struct {
	// Enabled turns the Prometheus endpoint on
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// BindAddress for the metrics HTTP server
	BindAddress string `mapstructure:"bind_address" yaml:"bind_address"`

	// Port for the metrics HTTP server
	Port int `mapstructure:"port" yaml:"port" validate:"min=0,max=65535"`
}

// SnapshotConfig configures namespace persistence.
type SnapshotConfig struct {
	// Engine selects the persistence backend: none, file, or badger
	Engine string `mapstructure:"engine" yaml:"engine" validate:"required,oneof=none file badger"`

	// Dir is where snapshots live; required unless Engine is none
	Dir string `mapstructure:"dir" yaml:"dir"`

	// MaxLoadSize bounds the snapshot size accepted at startup when the
	// file engine is used; 0 means unlimited
	MaxLoadSize bytesize.ByteSize `mapstructure:"max_load_size" yaml:"max_load_size"`
}

// NamespaceConfig declares one served namespace.
type NamespaceConfig struct {
	// ID is the one-byte address clients use; 255 is reserved
	ID uint8 `mapstructure:"id" yaml:"id" validate:"max=254"`

	// Name identifies the namespace in logs and snapshots
	Name string `mapstructure:"name" yaml:"name" validate:"required"`

	// Kind fixes the key and value schemas, as "key:value"
	Kind string `mapstructure:"kind" yaml:"kind" validate:"required,oneof=u32:u32 u64:u64 u32:string string:string string:bytes"`

	// Persist enables SAVE and startup restore for this namespace
	Persist bool `mapstructure:"persist" yaml:"persist"`
}

// Load loads configuration from file, environment, and defaults.
// An empty configPath uses the default location.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		cfg := Default()
		if err := Validate(cfg); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages when the file
// is missing.
func MustLoad(configPath string) (*Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings. Environment variables use the WIRECACHE_ prefix, for example
// WIRECACHE_LOGGING_LEVEL=DEBUG.
func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix("WIRECACHE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can say "512Mi" or a plain number.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path, honoring
// XDG_CONFIG_HOME.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "wirecache")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "wirecache")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
