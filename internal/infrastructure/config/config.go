package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for FleetDeck Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	API       APIConfig       `yaml:"api"`
	Relay     RelayConfig     `yaml:"relay"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// BackendConfig contains fleet backend connection settings.
//
// StreamURL is the WebSocket endpoint for the real-time event stream.
// RESTURL is the base URL for the REST API (notifications, device CRUD).
// Token and UserID identify the session; the token is an opaque bearer
// credential issued by the backend at login.
type BackendConfig struct {
	StreamURL string `yaml:"stream_url"`
	RESTURL   string `yaml:"rest_url"`
	Token     string `yaml:"token"`
	UserID    string `yaml:"user_id"`

	// ConnectTimeout is the maximum time to wait for the WebSocket dial (seconds).
	ConnectTimeout int `yaml:"connect_timeout"`
}

// ReconnectConfig contains stream reconnection settings.
//
// The delay before attempt n is min(2^n, max_delay) * base_delay seconds.
// After max_attempts consecutive failures the session stops retrying and
// surfaces a persistent connection-lost condition until Reconnect() is called.
type ReconnectConfig struct {
	BaseDelay   int `yaml:"base_delay"`
	MaxDelay    int `yaml:"max_delay"`
	MaxAttempts int `yaml:"max_attempts"`
}

// APIConfig contains the local HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// RelayConfig contains local MQTT relay settings.
//
// When enabled, routed telemetry and status envelopes are republished on a
// local broker so wall panels and other on-site consumers can follow fleet
// state without a cloud round-trip.
type RelayConfig struct {
	Enabled bool              `yaml:"enabled"`
	Broker  RelayBrokerConfig `yaml:"broker"`
	Auth    RelayAuthConfig   `yaml:"auth"`
	QoS     int               `yaml:"qos"`
}

// RelayBrokerConfig contains MQTT broker connection details.
type RelayBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// RelayAuthConfig contains MQTT authentication credentials.
type RelayAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// InfluxDBConfig contains InfluxDB connection settings for the telemetry sink.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// DatabaseConfig contains SQLite settings for the local event archive.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: FLEETDECK_SECTION_KEY
// For example: FLEETDECK_BACKEND_TOKEN, FLEETDECK_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			StreamURL:      "ws://localhost:9000/ws",
			RESTURL:        "http://localhost:9000/api",
			ConnectTimeout: 10,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:   1,
			MaxDelay:    30,
			MaxAttempts: 5,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Relay: RelayConfig{
			Broker: RelayBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "fleetdeck-core",
			},
			QoS: 1,
		},
		Database: DatabaseConfig{
			Path:        "./data/fleetdeck.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: FLEETDECK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Backend
	if v := os.Getenv("FLEETDECK_BACKEND_STREAM_URL"); v != "" {
		cfg.Backend.StreamURL = v
	}
	if v := os.Getenv("FLEETDECK_BACKEND_REST_URL"); v != "" {
		cfg.Backend.RESTURL = v
	}
	if v := os.Getenv("FLEETDECK_BACKEND_TOKEN"); v != "" {
		cfg.Backend.Token = v
	}
	if v := os.Getenv("FLEETDECK_BACKEND_USER_ID"); v != "" {
		cfg.Backend.UserID = v
	}

	// Database
	if v := os.Getenv("FLEETDECK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Relay
	if v := os.Getenv("FLEETDECK_RELAY_HOST"); v != "" {
		cfg.Relay.Broker.Host = v
	}
	if v := os.Getenv("FLEETDECK_RELAY_USERNAME"); v != "" {
		cfg.Relay.Auth.Username = v
	}
	if v := os.Getenv("FLEETDECK_RELAY_PASSWORD"); v != "" {
		cfg.Relay.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("FLEETDECK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Backend validation
	if c.Backend.StreamURL == "" {
		errs = append(errs, "backend.stream_url is required")
	} else if !strings.HasPrefix(c.Backend.StreamURL, "ws://") && !strings.HasPrefix(c.Backend.StreamURL, "wss://") {
		errs = append(errs, "backend.stream_url must use ws:// or wss:// scheme")
	}
	if c.Backend.RESTURL == "" {
		errs = append(errs, "backend.rest_url is required")
	}
	if c.Backend.Token == "" {
		errs = append(errs, "backend.token is required (set FLEETDECK_BACKEND_TOKEN environment variable)")
	}
	if c.Backend.UserID == "" {
		errs = append(errs, "backend.user_id is required (set FLEETDECK_BACKEND_USER_ID environment variable)")
	}

	// Reconnect validation
	if c.Reconnect.BaseDelay < 1 {
		errs = append(errs, "reconnect.base_delay must be at least 1 second")
	}
	if c.Reconnect.MaxDelay < c.Reconnect.BaseDelay {
		errs = append(errs, "reconnect.max_delay must be >= reconnect.base_delay")
	}
	if c.Reconnect.MaxAttempts < 1 {
		errs = append(errs, "reconnect.max_attempts must be at least 1")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Relay validation
	if c.Relay.QoS < 0 || c.Relay.QoS > 2 {
		errs = append(errs, "relay.qos must be 0, 1, or 2")
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database.enabled is true")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetConnectTimeout returns the backend dial timeout as a Duration.
func (c *Config) GetConnectTimeout() time.Duration {
	return time.Duration(c.Backend.ConnectTimeout) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
