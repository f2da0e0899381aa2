// Package appconf holds application configuration and the environment the
// application runs under.
package appconf

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Environment describes the runtime environment of the application.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

// String returns the lowercase name of the environment.
func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFromString maps a config value onto an Environment. Unknown values
// resolve to Development.
func EnvFromString(s string) Environment {
	switch s {
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

// Config is the application configuration, normally loaded from a YAML file.
type Config struct {
	// SnapshotPath points at the SQLite snapshot produced by the offline
	// ETL. A ".zst" suffix is decompressed to a temporary file on open.
	SnapshotPath string `yaml:"snapshot_path" validate:"required"`

	// EnvName selects development/test/production behavior.
	EnvName string `yaml:"env" validate:"omitempty,oneof=development test production"`

	// WarmEndpointCache precomputes every (site, day type, direction)
	// endpoint option list at startup.
	WarmEndpointCache bool `yaml:"warm_endpoint_cache"`

	// WarmRatePerSecond paces warm-up cache builds so startup does not
	// monopolize the CPU. Zero or negative means unpaced.
	WarmRatePerSecond int `yaml:"warm_rate_per_second" validate:"gte=0"`

	// ExcludedRouteKeyword filters routes whose name contains this
	// substring (internal test routes) out of every query.
	ExcludedRouteKeyword string `yaml:"excluded_route_keyword"`

	Verbose bool `yaml:"verbose"`
}

// Env returns the parsed Environment for the configured env name.
func (c Config) Env() Environment {
	return EnvFromString(c.EnvName)
}

// LoadFromFile reads and validates a YAML config file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("unable to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("unable to parse config file %s: %w", path, err)
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}
