package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/marmos91/wirecache/pkg/protocol"
)

// Default returns a configuration with every field at its default value:
// a server on port 1337, metrics off, persistence off, and a single
// u32:u32 namespace at id 0.
func Default() *Config {
	cfg := &Config{
		Namespaces: []NamespaceConfig{
			{ID: 0, Name: "default", Kind: "u32:u32"},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults sets default values for any unspecified configuration
// fields. Zero values are replaced; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyMetricsDefaults(&cfg.Metrics)
	applySnapshotDefaults(&cfg.Snapshot)
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.Port == 0 {
		cfg.Port = 1337
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

func applySnapshotDefaults(cfg *SnapshotConfig) {
	if cfg.Engine == "" {
		cfg.Engine = "none"
	}
	if cfg.Dir == "" {
		cfg.Dir = "./snapshots"
	}
}

// Validate checks the configuration. Struct tags cover field-level rules;
// the cross-field rules (persistence engine, namespace id uniqueness) are
// checked by hand.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	seenIDs := make(map[uint8]string)
	seenNames := make(map[string]uint8)
	for _, ns := range cfg.Namespaces {
		if ns.ID == protocol.ControlNamespace {
			return fmt.Errorf("namespace %q uses reserved id %d", ns.Name, ns.ID)
		}
		if other, dup := seenIDs[ns.ID]; dup {
			return fmt.Errorf("namespaces %q and %q share id %d", other, ns.Name, ns.ID)
		}
		if otherID, dup := seenNames[ns.Name]; dup {
			return fmt.Errorf("namespace name %q used by ids %d and %d", ns.Name, otherID, ns.ID)
		}
		seenIDs[ns.ID] = ns.Name
		seenNames[ns.Name] = ns.ID

		if ns.Persist && cfg.Snapshot.Engine == "none" {
			return fmt.Errorf("namespace %q requests persistence but snapshot engine is none", ns.Name)
		}
	}

	return nil
}
