// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variable names understood by the gateway.
const (
	EnvBridgeEnabled  = "REALTIME_BRIDGE_ENABLED"
	EnvBridgeDisabled = "REALTIME_BRIDGE_DISABLED"
	EnvWindowMs       = "REALTIME_BRIDGE_WINDOW_MS"
	EnvPerUser        = "REALTIME_BRIDGE_MAX_EVENTS_PER_USER"
	EnvPerRoom        = "REALTIME_BRIDGE_MAX_EVENTS_PER_ROOM"
	EnvPerUserRoom    = "REALTIME_BRIDGE_MAX_EVENTS_PER_USER_ROOM"
	EnvTrackedEvents  = "REALTIME_BRIDGE_TRACKED_EVENTS"
	EnvExcludedEvents = "REALTIME_BRIDGE_EXCLUDED_EVENTS"
	EnvFlagFile       = "REALTIME_BRIDGE_FLAG_FILE"
	EnvRealtimePort   = "REALTIME_PORT"
	EnvPort           = "PORT"
	EnvLogLevel       = "SOCKETGATE_LOG_LEVEL"
	EnvLogFormat      = "SOCKETGATE_LOG_FORMAT"
	EnvMetricsEnabled = "SOCKETGATE_METRICS_ENABLED"
)

// Defaults for the bridge controls.
const (
	DefaultWindow      = 10 * time.Second
	DefaultPerUser     = 60
	DefaultPerRoom     = 200
	DefaultPerUserRoom = 40
	DefaultPort        = 8082
)

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP/WebSocket server.
// No request timeouts here: the server hosts long-lived socket connections
// and per-frame deadlines are enforced at the transport layer.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// BridgeConfig configures the admission bridge and its burst limiter.
type BridgeConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Window         time.Duration `yaml:"window"`
	PerUser        int           `yaml:"per_user"`
	PerRoom        int           `yaml:"per_room"`
	PerUserInRoom  int           `yaml:"per_user_in_room"`
	TrackedEvents  []string      `yaml:"tracked_events"`
	ExcludedEvents []string      `yaml:"excluded_events"`
	FlagFile       string        `yaml:"flag_file"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load reads a YAML config file and applies env overrides on top.
// Precedence: defaults, then file, then environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	setDefaults(cfg)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, validate(cfg)
}

// FromEnv builds the configuration from environment variables alone.
func FromEnv() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultPort
	}
	cfg.Bridge.Enabled = true
	if cfg.Bridge.Window == 0 {
		cfg.Bridge.Window = DefaultWindow
	}
	if cfg.Bridge.PerUser == 0 {
		cfg.Bridge.PerUser = DefaultPerUser
	}
	if cfg.Bridge.PerRoom == 0 {
		cfg.Bridge.PerRoom = DefaultPerRoom
	}
	if cfg.Bridge.PerUserInRoom == 0 {
		cfg.Bridge.PerUserInRoom = DefaultPerUserRoom
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func applyEnvOverrides(cfg *Config) {
	// Port: REALTIME_PORT wins over the generic PORT.
	if v := os.Getenv(EnvRealtimePort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	} else if v := os.Getenv(EnvPort); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	cfg.Bridge.Enabled = ParseBool(os.Getenv(EnvBridgeEnabled), cfg.Bridge.Enabled) &&
		!ParseBool(os.Getenv(EnvBridgeDisabled), false)

	if ms := parseNonNegativeInt(os.Getenv(EnvWindowMs), -1); ms >= 0 {
		cfg.Bridge.Window = time.Duration(ms) * time.Millisecond
	}
	if n := parseNonNegativeInt(os.Getenv(EnvPerUser), -1); n >= 0 {
		cfg.Bridge.PerUser = n
	}
	if n := parseNonNegativeInt(os.Getenv(EnvPerRoom), -1); n >= 0 {
		cfg.Bridge.PerRoom = n
	}
	if n := parseNonNegativeInt(os.Getenv(EnvPerUserRoom), -1); n >= 0 {
		cfg.Bridge.PerUserInRoom = n
	}
	if list := ParseList(os.Getenv(EnvTrackedEvents)); list != nil {
		cfg.Bridge.TrackedEvents = list
	}
	if list := ParseList(os.Getenv(EnvExcludedEvents)); list != nil {
		cfg.Bridge.ExcludedEvents = list
	}
	if v := os.Getenv(EnvFlagFile); v != "" {
		cfg.Bridge.FlagFile = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv(EnvMetricsEnabled); v != "" {
		cfg.Metrics.Enabled = ParseBool(v, cfg.Metrics.Enabled)
	}
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Bridge.Window <= 0 {
		return fmt.Errorf("bridge window must be positive, got %s", cfg.Bridge.Window)
	}
	return nil
}

// ParseBool interprets the recognized truthy and falsy strings, returning
// fallback for anything else (including empty and unparseable values).
func ParseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	case "false", "0", "off", "no":
		return false
	default:
		return fallback
	}
}

// ParseList splits a comma-separated value, trimming entries and dropping
// empties. Returns nil when no entries remain.
func ParseList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}

func parseNonNegativeInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}
