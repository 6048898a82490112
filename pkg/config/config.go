package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/rfmesh/hes/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the HES configuration.
//
// This structure captures the static configuration of the head-end
// system:
//   - Logging and tracing configuration
//   - The gateway TCP listener and its per-session timeouts
//   - The MQTT control-plane connection
//   - The FUOTA firmware image base path
//   - The pull scheduler's cycle tolerance and tick interval
//   - The relational store connection (Postgres or SQLite)
//   - Metrics and optional admin gRPC surface
//
// Configuration sources (in order of precedence):
//  1. Environment variables (HES_*), for keys present in the configuration file
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// No CLI flag overrides a configuration value; --config only selects the file.
type Config struct {
	// Logging controls log output behavior.
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing and profiling.
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Database configures the relational store (SQLite or PostgreSQL).
	Database store.Config `mapstructure:"database" yaml:"database"`

	// Metrics contains Prometheus metrics server configuration.
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Gateway contains the gateway TCP listener configuration.
	Gateway GatewayConfig `mapstructure:"gateway" validate:"required" yaml:"gateway"`

	// MQTT contains the MQTT control-plane connection configuration.
	MQTT MQTTConfig `mapstructure:"mqtt" validate:"required" yaml:"mqtt"`

	// FUOTA contains firmware-update file-transfer configuration.
	FUOTA FuotaConfig `mapstructure:"fuota" yaml:"fuota"`

	// Scheduler contains pull-cycle scheduling configuration.
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler"`

	// ControlPlane contains the optional admin gRPC surface configuration.
	ControlPlane ControlPlaneConfig `mapstructure:"controlplane" yaml:"controlplane"`

	// Admin contains the initial admin/broker credential for bootstrap.
	Admin AdminConfig `mapstructure:"admin" yaml:"admin"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output.
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive).
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format: text or json.
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written: stdout, stderr, or a file path.
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use an insecure (non-TLS) connection.
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0).
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect.
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and the HTTP server are active.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// GatewayConfig configures the gateway TCP listener and per-session timeouts.
type GatewayConfig struct {
	// ListenAddr is the address the TCP listener binds to (e.g. "0.0.0.0").
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`

	// Port is the TCP port gateways connect to.
	Port int `mapstructure:"port" validate:"required,min=1,max=65535" yaml:"port"`

	// MaxConnections caps concurrent gateway sessions. 0 means unlimited.
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections"`

	// HandshakeTimeout bounds how long the engine waits for the initial
	// "PGWID:" handshake line after accept.
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout" yaml:"handshake_timeout"`

	// RecvTimeout is the per-request response deadline used by the
	// transactor's retry ladder (spec default 12s).
	RecvTimeout time.Duration `mapstructure:"recv_timeout" yaml:"recv_timeout"`

	// IdleTimeout disconnects a session that sends nothing (not even a
	// PING) for this long.
	IdleTimeout time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful per-session drain during listener shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// MQTTConfig configures the control-plane MQTT connection.
type MQTTConfig struct {
	// BrokerURL is the MQTT broker connection string (e.g. "tcp://localhost:1883").
	BrokerURL string `mapstructure:"broker_url" validate:"required" yaml:"broker_url"`

	// ClientID is the MQTT client identifier this process connects with.
	ClientID string `mapstructure:"client_id" yaml:"client_id"`

	// Username authenticates to the broker, paired with Admin.MQTTPasswordHash
	// verified out of band (the broker itself is out of scope; the engine
	// only presents credentials, it does not enforce them).
	Username string `mapstructure:"username" yaml:"username"`

	// TopicPrefix is prefixed to the `<gateway-id>/ONDEMAND_REQUEST` topic,
	// empty by default.
	TopicPrefix string `mapstructure:"topic_prefix" yaml:"topic_prefix,omitempty"`

	// QoS is the MQTT quality-of-service level used for subscriptions.
	QoS byte `mapstructure:"qos" validate:"omitempty,min=0,max=2" yaml:"qos"`

	// ConnectTimeout bounds the initial broker connection attempt.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

// FuotaConfig configures firmware-update file-transfer behavior.
type FuotaConfig struct {
	// BasePath is the root directory firmware images are read from, laid
	// out as <base>/FUOTA/RF/<gateway-id>/<filename>.
	BasePath string `mapstructure:"base_path" validate:"required" yaml:"base_path"`

	// SectorSize is the erase-flash sector size in bytes.
	SectorSize int `mapstructure:"sector_size" validate:"omitempty,gt=0" yaml:"sector_size"`

	// MaxPayload is the maximum bytes carried per image-transfer subpage.
	MaxPayload int `mapstructure:"max_payload" validate:"omitempty,gt=0" yaml:"max_payload"`
}

// SchedulerConfig configures the periodic pull scheduler.
type SchedulerConfig struct {
	// TickInterval is how often the per-gateway task wakes to check for
	// pull-cycle work in the absence of socket or MQTT activity.
	TickInterval time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`

	// CycleTolerance is added to wall-clock time before dividing by the
	// 15-minute cycle window, per the tolerance variant of the cycle-id math.
	CycleTolerance time.Duration `mapstructure:"cycle_tolerance" yaml:"cycle_tolerance"`
}

// ControlPlaneConfig configures the optional gRPC admin surface
// (GatewayStatus/KickGateway).
type ControlPlaneConfig struct {
	// Enabled controls whether the admin gRPC server is started.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the gRPC listener port.
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// AdminConfig contains the bootstrap MQTT broker credential.
type AdminConfig struct {
	// MQTTPasswordHash is the bcrypt hash of the MQTT broker password this
	// process authenticates with. Generated during 'hes init'.
	MQTTPasswordHash string `mapstructure:"mqtt_password_hash" yaml:"mqtt_password_hash,omitempty"`
}

var validate = validator.New()

// Validate runs struct-tag validation over the loaded configuration.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Database.Validate(); err != nil {
		return fmt.Errorf("invalid database configuration: %w", err)
	}
	return nil
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (HES_*), for keys present in the file
//  2. Configuration file
//  3. Default values
//
// When no configuration file is found, Load returns GetDefaultConfig() and
// environment variables are not applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	if !configFileFound {
		return GetDefaultConfig(), nil
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

// MustLoad loads configuration with helpful error messages, checking that
// the config file exists first.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  hes init\n\n"+
				"Or specify a custom config file:\n"+
				"  hes <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s\n\n"+
			"Please create the configuration file:\n"+
			"  hes init --config %s",
			configPath, configPath)
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML format.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions: the file may carry a bcrypt password hash.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variable and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the HES_ prefix, e.g. HES_GATEWAY_PORT=7000.
	v.SetEnvPrefix("HES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error).
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

// configDecodeHooks returns the combined mapstructure decode hook used to
// unmarshal durations from human-readable strings.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook converts strings like "30s", "5m", "1h" to time.Duration.
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

// getConfigDir returns the configuration directory path.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, falling back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "hes")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "hes")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
