// Package config provides a layered configuration loader for cruxctl.
package config

import (
	"fmt"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ServerConfig configures `cruxctl serve`.
type ServerConfig struct {
	HTTPAddr      string `koanf:"http_addr"`
	WebSocketAddr string `koanf:"websocket_addr"`
	MetricsAddr   string `koanf:"metrics_addr"`
	StoreDriver   string `koanf:"store_driver"` // "memory" or "sqlite"
	SQLitePath    string `koanf:"sqlite_path"`
	LogLevel      string `koanf:"log_level"`
}

// Validate implements the Loader's optional Validator hook.
func (c ServerConfig) Validate() error {
	switch c.StoreDriver {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("config: unknown store_driver %q", c.StoreDriver)
	}
	if c.StoreDriver == "sqlite" && c.SQLitePath == "" {
		return fmt.Errorf("config: sqlite_path is required when store_driver is sqlite")
	}
	return nil
}

// DefaultServerConfig returns the struct-default layer of ServerConfig.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPAddr:      ":8080",
		WebSocketAddr: ":8081",
		MetricsAddr:   ":9090",
		StoreDriver:   "memory",
		SQLitePath:    "crux.db",
		LogLevel:      "info",
	}
}

// Validator can be implemented by config structs to enable validation
// after Unmarshal.
type Validator interface {
	Validate() error
}

// Loader loads configuration with the priority, highest first: environment
// variables, a YAML file, then struct defaults.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
}

// NewLoader creates a Loader. envPrefix should be like "CRUX" (without a
// trailing delimiter); environment variables use "__" for nesting, e.g.
// CRUX__STORE_DRIVER=sqlite -> store_driver.
func NewLoader(envPrefix string) *Loader {
	return &Loader{k: koanf.New("."), envPrefix: envPrefix + "__"}
}

// LoadWithDefaults loads defaults, then configPath if non-empty, then
// environment variables, into the loader's internal tree.
func (l *Loader) LoadWithDefaults(defaults any, configPath string) error {
	if defaults != nil {
		if err := l.k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
			return fmt.Errorf("load defaults: %w", err)
		}
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("config file not found: %s", configPath)
		}
		if err := l.k.Load(file.Provider(configPath), koanfyaml.Parser()); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	envProvider := env.Provider(l.envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := l.k.Load(envProvider, nil); err != nil {
		return fmt.Errorf("load environment variables: %w", err)
	}

	return nil
}

// UnmarshalAndValidate unmarshals the loaded configuration into out and
// calls out.Validate() if it implements Validator.
func (l *Loader) UnmarshalAndValidate(out any) error {
	if err := l.k.Unmarshal("", out); err != nil {
		return fmt.Errorf("unmarshal config: %w", err)
	}
	if v, ok := out.(Validator); ok {
		return v.Validate()
	}
	return nil
}
