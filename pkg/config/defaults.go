package config

import (
	"strings"
	"time"

	"github.com/rfmesh/hes/internal/store"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults. Zero
// values are replaced with defaults; explicit values are preserved.
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyGatewayDefaults(&cfg.Gateway)
	applyMQTTDefaults(&cfg.MQTT)
	applyFuotaDefaults(&cfg.FUOTA)
	applySchedulerDefaults(&cfg.Scheduler)
	applyControlPlaneDefaults(&cfg.ControlPlane)
	store.ApplyDefaults(&cfg.Database)

	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
	applyProfilingDefaults(&cfg.Profiling)
}

func applyProfilingDefaults(cfg *ProfilingConfig) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}
	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = []string{"cpu", "alloc_objects", "alloc_space", "inuse_objects", "inuse_space", "goroutines"}
	}
}

func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyGatewayDefaults sets gateway listener defaults. The recv-timeout
// default of 12s comes from the spec's Scenario A handshake expectation.
func applyGatewayDefaults(cfg *GatewayConfig) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 7000
	}
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	if cfg.RecvTimeout == 0 {
		cfg.RecvTimeout = 12 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

func applyMQTTDefaults(cfg *MQTTConfig) {
	if cfg.BrokerURL == "" {
		cfg.BrokerURL = "tcp://localhost:1883"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "hes"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
}

func applyFuotaDefaults(cfg *FuotaConfig) {
	if cfg.BasePath == "" {
		cfg.BasePath = "/var/lib/hes/firmware"
	}
	if cfg.SectorSize == 0 {
		cfg.SectorSize = 4096
	}
	if cfg.MaxPayload == 0 {
		cfg.MaxPayload = 128
	}
}

func applySchedulerDefaults(cfg *SchedulerConfig) {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 30 * time.Second
	}
	if cfg.CycleTolerance == 0 {
		cfg.CycleTolerance = 5 * time.Minute
	}
}

func applyControlPlaneDefaults(cfg *ControlPlaneConfig) {
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 8090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
// Useful for generating sample configuration files, tests, and documentation.
func GetDefaultConfig() *Config {
	cfg := &Config{
		Database: store.Config{
			Type: store.DatabaseTypeSQLite,
			SQLite: store.SQLiteConfig{
				Path: "/var/lib/hes/hes.db",
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}
