package commands

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/rfmesh/hes/internal/apiserver"
	"github.com/rfmesh/hes/internal/controlplane"
	"github.com/rfmesh/hes/internal/gateway"
	"github.com/rfmesh/hes/internal/logger"
	"github.com/rfmesh/hes/internal/mqttctl"
	"github.com/rfmesh/hes/internal/store"
	"github.com/rfmesh/hes/internal/telemetry"
	"github.com/rfmesh/hes/pkg/config"
	"github.com/rfmesh/hes/pkg/metrics"

	// Import prometheus metrics to register their constructors.
	_ "github.com/rfmesh/hes/pkg/metrics/prometheus"
)

var (
	foreground bool
	pidFile    string
	logFile    string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the head-end system",
	Long: `Start the head-end system with the specified configuration.

By default, the process runs in the background (daemon mode). Use --foreground
to run in the foreground for debugging or when managed by a process supervisor.

Use --config to specify a custom configuration file, or it will use the
default location at $XDG_CONFIG_HOME/hes/config.yaml.

Examples:
  # Start in background (default)
  hes start

  # Start in foreground
  hes start --foreground

  # Start with custom config file
  hes start --config /etc/hes/config.yaml

  # Start with environment variable overrides
  HES_LOGGING_LEVEL=DEBUG hes start --foreground`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVarP(&foreground, "foreground", "f", false, "Run in foreground (default: background/daemon mode)")
	startCmd.Flags().StringVar(&pidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/hes/hes.pid)")
	startCmd.Flags().StringVar(&logFile, "log-file", "", "Path to log file for daemon mode (default: $XDG_STATE_HOME/hes/hes.log)")
}

func runStart(cmd *cobra.Command, args []string) error {
	if !foreground {
		return startDaemon()
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	telemetryShutdown, err := initTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := telemetryShutdown(ctx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}()

	profilingShutdown, err := initProfiling(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := profilingShutdown(); err != nil {
			logger.Error("profiling shutdown error", "error", err)
		}
	}()

	fmt.Println("hes - head-end system for an RF mesh AMI network")
	logger.Info("log level", "level", cfg.Logging.Level, "format", cfg.Logging.Format)
	logger.Info("configuration loaded", "source", getConfigSource(GetConfigFile()))

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	st, err := store.New(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	sub, closeSub, err := newSubscriber(cfg)
	if err != nil {
		return err
	}
	defer closeSub()

	fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.FUOTA.BasePath)

	gwServer := gateway.New(gateway.Config{
		Port:             cfg.Gateway.Port,
		MaxConnections:   cfg.Gateway.MaxConnections,
		HandshakeTimeout: cfg.Gateway.HandshakeTimeout,
		ShutdownTimeout:  cfg.Gateway.ShutdownTimeout,
		ControllerID:     cfg.MQTT.ClientID,
	}, st, fs, sub, logger.With("component", "gateway"))

	startedAt := time.Now()

	var grpcServer *grpc.Server
	if cfg.ControlPlane.Enabled {
		grpcServer = grpc.NewServer()
		controlplane.Register(grpcServer, controlplane.New(gwServer.Registry(), logger.With("component", "controlplane")))
	}

	httpServer := apiserver.NewServer(apiserver.Config{Port: cfg.Metrics.Port}, gwServer.Registry(), startedAt)

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(fmt.Sprintf("%d", os.Getpid())), 0644); err != nil {
			return fmt.Errorf("failed to write PID file: %w", err)
		}
		defer func() { _ = os.Remove(pidFile) }()
	}

	gatewayDone := make(chan error, 1)
	go func() { gatewayDone <- gwServer.Serve(ctx) }()

	httpDone := make(chan error, 1)
	go func() { httpDone <- httpServer.Start(ctx) }()

	grpcDone := make(chan error, 1)
	if grpcServer != nil {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ControlPlane.Port))
		if err != nil {
			return fmt.Errorf("failed to listen for admin gRPC on port %d: %w", cfg.ControlPlane.Port, err)
		}
		logger.Info("admin grpc surface listening", "port", cfg.ControlPlane.Port)
		go func() { grpcDone <- grpcServer.Serve(lis) }()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("hes is running. Press Ctrl+C to stop.")

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logger.Info("shutdown signal received, initiating graceful shutdown")
		cancel()
		if grpcServer != nil {
			grpcServer.GracefulStop()
		}
		if err := <-gatewayDone; err != nil {
			logger.Error("gateway server shutdown error", "error", err)
			return err
		}
		if err := <-httpDone; err != nil {
			logger.Error("health/metrics server shutdown error", "error", err)
		}
		if grpcServer != nil {
			if err := <-grpcDone; err != nil {
				logger.Error("admin grpc server shutdown error", "error", err)
			}
		}
		logger.Info("hes stopped gracefully")

	case err := <-gatewayDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("gateway server error", "error", err)
			return err
		}

	case err := <-httpDone:
		signal.Stop(sigChan)
		if err != nil {
			logger.Error("health/metrics server error", "error", err)
			return err
		}
	}

	return nil
}

func initTelemetry(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	telemetryCfg := telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "hes",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Endpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SampleRate:     cfg.Telemetry.SampleRate,
	}
	shutdown, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	if telemetry.IsEnabled() {
		logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.Endpoint, "sample_rate", cfg.Telemetry.SampleRate)
	} else {
		logger.Info("telemetry disabled")
	}
	return shutdown, nil
}

func initProfiling(cfg *config.Config) (func() error, error) {
	profilingCfg := telemetry.ProfilingConfig{
		Enabled:        cfg.Telemetry.Profiling.Enabled,
		ServiceName:    "hes",
		ServiceVersion: Version,
		Endpoint:       cfg.Telemetry.Profiling.Endpoint,
		ProfileTypes:   cfg.Telemetry.Profiling.ProfileTypes,
	}
	shutdown, err := telemetry.InitProfiling(profilingCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize profiling: %w", err)
	}
	if telemetry.IsProfilingEnabled() {
		logger.Info("profiling enabled", "endpoint", cfg.Telemetry.Profiling.Endpoint, "profile_types", cfg.Telemetry.Profiling.ProfileTypes)
	} else {
		logger.Info("profiling disabled")
	}
	return shutdown, nil
}

// newSubscriber dials the configured MQTT broker and returns a Subscriber
// plus a function that disconnects it.
//
// The broker password never lives in config.yaml: "hes init" only persists
// its bcrypt hash (cfg.Admin.MQTTPasswordHash). The plaintext is supplied
// out of band via HES_MQTT_PASSWORD and checked against the stored hash
// before being handed to the broker client, so a config file leak alone
// can't recover the credential.
func newSubscriber(cfg *config.Config) (mqttctl.Subscriber, func(), error) {
	password := os.Getenv("HES_MQTT_PASSWORD")
	if cfg.Admin.MQTTPasswordHash != "" {
		if password == "" {
			return nil, nil, fmt.Errorf("HES_MQTT_PASSWORD must be set (config has a bootstrap broker credential)")
		}
		if !mqttctl.VerifyBrokerPassword(cfg.Admin.MQTTPasswordHash, password) {
			return nil, nil, fmt.Errorf("HES_MQTT_PASSWORD does not match the configured broker credential")
		}
	}

	sub, err := mqttctl.NewBrokerSubscriber(mqttctl.PahoConfig{
		BrokerURL:      cfg.MQTT.BrokerURL,
		ClientID:       cfg.MQTT.ClientID,
		Username:       cfg.MQTT.Username,
		Password:       password,
		ConnectTimeout: cfg.MQTT.ConnectTimeout,
		QoS:            cfg.MQTT.QoS,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return sub, sub.Close, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// startDaemon starts the server as a background daemon process.
func startDaemon() error {
	stateDir := GetDefaultStateDir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	pidPath := pidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	if _, err := os.Stat(pidPath); err == nil {
		pidData, err := os.ReadFile(pidPath)
		if err == nil {
			var pid int
			if _, err := fmt.Sscanf(string(pidData), "%d", &pid); err == nil {
				if process, err := os.FindProcess(pid); err == nil {
					if err := process.Signal(syscall.Signal(0)); err == nil {
						return fmt.Errorf("hes is already running (PID %d)", pid)
					}
				}
			}
		}
		_ = os.Remove(pidPath)
	}

	logPath := logFile
	if logPath == "" {
		logPath = GetDefaultLogFile()
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}

	daemonArgs := []string{"start", "--foreground", "--pid-file", pidPath}
	if GetConfigFile() != "" {
		daemonArgs = append(daemonArgs, "--config", GetConfigFile())
	}

	cmd := exec.Command(executable, daemonArgs...)

	logFileHandle, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	_ = logFileHandle.Close()

	fmt.Printf("hes started in background (PID %d)\n", cmd.Process.Pid)
	fmt.Printf("  PID file: %s\n", pidPath)
	fmt.Printf("  Log file: %s\n", logPath)
	fmt.Println("\nUse 'hes status' to check server status")

	return nil
}
