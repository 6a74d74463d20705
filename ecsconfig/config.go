// Package ecsconfig loads runtime configuration for an ecs World and its
// satellite packages from environment variables, an optional .env file,
// and an optional YAML file, in that order of increasing precedence
// reversed — YAML provides defaults, .env and the environment override
// them, matching this module's ambient configuration convention.
package ecsconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// RuntimeConfig is the environment-driven configuration surface for the
// optional tick scheduler, debug server, and tracker defaults.
type RuntimeConfig struct {
	// TickRateHz is how many frames per second ecssched.Loop targets.
	TickRateHz float64 `env:"ECS_TICK_RATE_HZ" yaml:"tick_rate_hz"`
	// DebugAddr is the bind address for the optional debug HTTP server,
	// e.g. ":8090". Empty disables it.
	DebugAddr string `env:"ECS_DEBUG_ADDR" yaml:"debug_addr"`
	// TrackingEnabledByDefault sets the tracker's initial state for any
	// World constructed from this config.
	TrackingEnabledByDefault bool `env:"ECS_TRACKING_DEFAULT" yaml:"tracking_default"`
	// LogLevel is the logrus level name used by internal/logging.
	LogLevel string `env:"ECS_LOG_LEVEL" yaml:"log_level"`
	// LogFormat is "json" or "text".
	LogFormat string `env:"ECS_LOG_FORMAT" yaml:"log_format"`
}

// Default returns the configuration used when nothing is supplied.
func Default() RuntimeConfig {
	return RuntimeConfig{
		TickRateHz:               60,
		DebugAddr:                "",
		TrackingEnabledByDefault: false,
		LogLevel:                 "info",
		LogFormat:                "text",
	}
}

// LoadFromYAML reads base defaults from a YAML file at path. A missing
// file is not an error; it leaves cfg unchanged.
func LoadFromYAML(path string, cfg *RuntimeConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Load builds a RuntimeConfig starting from Default, layering in a YAML
// file (if yamlPath is non-empty and exists), an .env file (if present in
// the working directory), and finally the process environment, which
// takes precedence over everything else.
func Load(yamlPath string) (RuntimeConfig, error) {
	cfg := Default()

	if yamlPath != "" {
		if err := LoadFromYAML(yamlPath, &cfg); err != nil {
			return cfg, err
		}
	}

	_ = godotenv.Load()

	if err := envdecode.Decode(&cfg); err != nil {
		// envdecode errors when none of the target fields were set in the
		// environment; treat that as "no overrides" so local runs work
		// without exporting every variable.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return cfg, fmt.Errorf("decode env: %w", err)
		}
	}
	return cfg, nil
}
