package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Iris Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Session   SessionConfig   `yaml:"session"`
	Registry  RegistryConfig  `yaml:"registry"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Voice     VoiceConfig     `yaml:"voice"`
	IoT       IoTConfig       `yaml:"iot"`
	Display   DisplayConfig   `yaml:"display"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SessionConfig contains control-loop settings.
type SessionConfig struct {
	// IdleTimeoutSeconds is how long a non-idle screen may sit without
	// input before the session reverts to the idle screen.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds"`

	// CommandPollTimeoutMs bounds the per-tick wait for a voice command.
	// This is the loop's only blocking wait; it must stay short enough
	// that interrupts and idle timeouts are still serviced without speech.
	CommandPollTimeoutMs int `yaml:"command_poll_timeout_ms"`

	// InterruptBufferSize is the capacity of the interrupt channel buffer.
	InterruptBufferSize int `yaml:"interrupt_buffer_size"`

	// Features lists the feature names the session will activate by voice.
	Features []string `yaml:"features"`
}

// RegistryConfig contains device registry settings.
type RegistryConfig struct {
	// FreshnessWindowSeconds is the maximum age of a discovery result
	// before the record is reported unhealthy.
	FreshnessWindowSeconds int `yaml:"freshness_window_seconds"`
}

// DiscoveryConfig contains device discovery settings.
type DiscoveryConfig struct {
	// IntervalSeconds is the period of the background rescan cycle.
	IntervalSeconds int `yaml:"interval_seconds"`

	// ProbeTimeoutMs bounds each individual discovery probe.
	ProbeTimeoutMs int `yaml:"probe_timeout_ms"`

	// BootstrapGraceMs bounds the optional synchronous wait for first
	// results at session start before proceeding in degraded mode.
	BootstrapGraceMs int `yaml:"bootstrap_grace_ms"`

	// MDNSService is the DNS-SD service type devices advertise under.
	MDNSService string `yaml:"mdns_service"`

	// BroadcastPort is the UDP port used by the fallback broadcast probe.
	BroadcastPort int `yaml:"broadcast_port"`

	// BroadcastAddresses are the networks probed by the fallback.
	BroadcastAddresses []string `yaml:"broadcast_addresses"`

	// ManualDevices are static fallback addresses used when discovery
	// finds nothing within the bootstrap grace period.
	ManualDevices []ManualDevice `yaml:"manual_devices"`
}

// ManualDevice is a statically configured device address.
type ManualDevice struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Address      string   `yaml:"address"`
	Capabilities []string `yaml:"capabilities"`
}

// VoiceConfig contains voice input settings.
type VoiceConfig struct {
	// WakePhrase is the phrase that opens the main menu from idle.
	WakePhrase string `yaml:"wake_phrase"`

	// TranscriptTopic overrides the MQTT topic the phone publishes STT
	// results on. Empty uses the default iris topic.
	TranscriptTopic string `yaml:"transcript_topic"`
}

// IoTConfig contains actuator client settings.
type IoTConfig struct {
	// RequestTimeoutMs bounds each HTTP call to a device.
	RequestTimeoutMs int `yaml:"request_timeout_ms"`
}

// DisplayConfig contains the display bridge connection settings.
type DisplayConfig struct {
	// Address is the host:port of the display socket server on the Pi.
	Address string `yaml:"address"`

	// WriteTimeoutMs bounds each frame write.
	WriteTimeoutMs int `yaml:"write_timeout_ms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP listener settings for the sensor push endpoints
// and the debug event stream.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains telemetry sink settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
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
// Environment variables follow the pattern: IRIS_SECTION_KEY
// For example: IRIS_DATABASE_PATH, IRIS_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Session: SessionConfig{
			IdleTimeoutSeconds:   10,
			CommandPollTimeoutMs: 5000,
			InterruptBufferSize:  64,
			Features:             []string{"todo"},
		},
		Registry: RegistryConfig{
			FreshnessWindowSeconds: 45,
		},
		Discovery: DiscoveryConfig{
			IntervalSeconds:  30,
			ProbeTimeoutMs:   3000,
			BootstrapGraceMs: 5000,
			MDNSService:      "_iris-iot._tcp",
			BroadcastPort:    5353,
			BroadcastAddresses: []string{
				"255.255.255.255",
			},
		},
		Voice: VoiceConfig{
			WakePhrase: "hey iris",
		},
		IoT: IoTConfig{
			RequestTimeoutMs: 3000,
		},
		Display: DisplayConfig{
			Address:        "iris-pi.local:5555",
			WriteTimeoutMs: 2000,
		},
		Database: DatabaseConfig{
			Path:        "./data/iris.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "iris-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: IRIS_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("IRIS_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("IRIS_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("IRIS_MQTT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.MQTT.Broker.Port = port
		}
	}
	if v := os.Getenv("IRIS_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("IRIS_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("IRIS_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// Display bridge
	if v := os.Getenv("IRIS_DISPLAY_ADDRESS"); v != "" {
		cfg.Display.Address = v
	}

	// InfluxDB
	if v := os.Getenv("IRIS_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("IRIS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Invalid timing values are the only startup-fatal condition in the core:
// everything downstream assumes these are positive and bounded.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Session validation
	if c.Session.IdleTimeoutSeconds <= 0 {
		errs = append(errs, "session.idle_timeout_seconds must be positive")
	}
	if c.Session.CommandPollTimeoutMs <= 0 {
		errs = append(errs, "session.command_poll_timeout_ms must be positive")
	}
	if c.Session.InterruptBufferSize <= 0 {
		errs = append(errs, "session.interrupt_buffer_size must be positive")
	}

	// Registry validation
	if c.Registry.FreshnessWindowSeconds <= 0 {
		errs = append(errs, "registry.freshness_window_seconds must be positive")
	}

	// Discovery validation
	if c.Discovery.IntervalSeconds <= 0 {
		errs = append(errs, "discovery.interval_seconds must be positive")
	}
	if c.Discovery.ProbeTimeoutMs <= 0 {
		errs = append(errs, "discovery.probe_timeout_ms must be positive")
	}
	if c.Discovery.BroadcastPort < 1 || c.Discovery.BroadcastPort > 65535 {
		errs = append(errs, "discovery.broadcast_port must be between 1 and 65535")
	}
	for _, d := range c.Discovery.ManualDevices {
		if d.Name == "" || d.Address == "" {
			errs = append(errs, "discovery.manual_devices entries require name and address")
			break
		}
	}

	// Voice validation
	if strings.TrimSpace(c.Voice.WakePhrase) == "" {
		errs = append(errs, "voice.wake_phrase is required")
	}

	// IoT validation
	if c.IoT.RequestTimeoutMs <= 0 {
		errs = append(errs, "iot.request_timeout_ms must be positive")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IdleTimeout returns the session idle timeout as a Duration.
func (c *SessionConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// CommandPollTimeout returns the per-tick command wait as a Duration.
func (c *SessionConfig) CommandPollTimeout() time.Duration {
	return time.Duration(c.CommandPollTimeoutMs) * time.Millisecond
}

// FreshnessWindow returns the registry freshness window as a Duration.
func (c *RegistryConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSeconds) * time.Second
}

// Interval returns the rescan period as a Duration.
func (c *DiscoveryConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// ProbeTimeout returns the per-probe timeout as a Duration.
func (c *DiscoveryConfig) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutMs) * time.Millisecond
}

// BootstrapGrace returns the startup wait bound as a Duration.
func (c *DiscoveryConfig) BootstrapGrace() time.Duration {
	return time.Duration(c.BootstrapGraceMs) * time.Millisecond
}

// RequestTimeout returns the actuator HTTP timeout as a Duration.
func (c *IoTConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// WriteTimeout returns the display write timeout as a Duration.
func (c *DisplayConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutMs) * time.Millisecond
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
