package infra

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// StreamDefaults are applied to streaming requests that omit a parameter.
type StreamDefaults struct {
	MeasurementFrequencyHz float64 `yaml:"measurement_frequency_hz"`
	Signal                 string  `yaml:"signal"`
	SignalFrequencyHz      float64 `yaml:"signal_frequency_hz"`
	VariationPercent       float64 `yaml:"variation_percent"`
}

type Config struct {
	ServiceName         string         `yaml:"service_name"`
	HTTPPort            string         `yaml:"http_port"`
	GRPCPort            string         `yaml:"grpc_port"`
	MetricsPort         string         `yaml:"metrics_port"`
	ShutdownTimeoutMS   int            `yaml:"shutdown_timeout_ms"`
	StreamMaxDurationMS int            `yaml:"stream_max_duration_ms"`
	Defaults            StreamDefaults `yaml:"defaults"`
}

// DefaultConfig mirrors the service defaults before any file or environment overrides.
func DefaultConfig() Config {
	return Config{
		ServiceName:       "measurement-simulator",
		HTTPPort:          "8080",
		GRPCPort:          "50051",
		MetricsPort:       "2112",
		ShutdownTimeoutMS: 5000,
		Defaults: StreamDefaults{
			MeasurementFrequencyHz: 20,
			Signal:                 "sine",
			SignalFrequencyHz:      1,
			VariationPercent:       0,
		},
	}
}

// LoadConfig layers the optional YAML file named by CONFIG_FILE and then the
// environment over DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.HTTPPort = getEnv("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = getEnv("GRPC_PORT", cfg.GRPCPort)
	cfg.MetricsPort = getEnv("METRICS_PORT", cfg.MetricsPort)
	cfg.ShutdownTimeoutMS = getEnvInt("SHUTDOWN_TIMEOUT_MS", cfg.ShutdownTimeoutMS)
	cfg.StreamMaxDurationMS = getEnvInt("STREAM_MAX_DURATION_MS", cfg.StreamMaxDurationMS)
	cfg.Defaults.MeasurementFrequencyHz = getEnvFloat("DEFAULT_MEASUREMENT_FREQUENCY_HZ", cfg.Defaults.MeasurementFrequencyHz)
	cfg.Defaults.Signal = getEnv("DEFAULT_SIGNAL", cfg.Defaults.Signal)
	cfg.Defaults.SignalFrequencyHz = getEnvFloat("DEFAULT_SIGNAL_FREQUENCY_HZ", cfg.Defaults.SignalFrequencyHz)
	cfg.Defaults.VariationPercent = getEnvFloat("DEFAULT_VARIATION_PERCENT", cfg.Defaults.VariationPercent)

	return cfg, nil
}

// ShutdownTimeout converts ShutdownTimeoutMS, falling back to five seconds.
func (c Config) ShutdownTimeout() time.Duration {
	if c.ShutdownTimeoutMS <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.ShutdownTimeoutMS) * time.Millisecond
}

// StreamMaxDuration is zero when streams are unbounded.
func (c Config) StreamMaxDuration() time.Duration {
	if c.StreamMaxDurationMS <= 0 {
		return 0
	}
	return time.Duration(c.StreamMaxDurationMS) * time.Millisecond
}

func LogConfig(ctx context.Context, logger *Logger, cfg Config) {
	logger.Printf(ctx, "SERVICE_NAME=%s", cfg.ServiceName)
	logger.Printf(ctx, "HTTP_PORT=%s", cfg.HTTPPort)
	logger.Printf(ctx, "GRPC_PORT=%s", emptyFallback(cfg.GRPCPort, "(disabled)"))
	logger.Printf(ctx, "METRICS_PORT=%s", emptyFallback(cfg.MetricsPort, "(disabled)"))
	logger.Printf(ctx, "SHUTDOWN_TIMEOUT_MS=%d", cfg.ShutdownTimeoutMS)
	if cfg.StreamMaxDurationMS > 0 {
		logger.Printf(ctx, "STREAM_MAX_DURATION_MS=%d", cfg.StreamMaxDurationMS)
	} else {
		logger.Println(ctx, "STREAM_MAX_DURATION_MS not set (streams run until the client disconnects)")
	}
	logger.Printf(ctx, "DEFAULT_MEASUREMENT_FREQUENCY_HZ=%g", cfg.Defaults.MeasurementFrequencyHz)
	logger.Printf(ctx, "DEFAULT_SIGNAL=%s", cfg.Defaults.Signal)
	logger.Printf(ctx, "DEFAULT_SIGNAL_FREQUENCY_HZ=%g", cfg.Defaults.SignalFrequencyHz)
	logger.Printf(ctx, "DEFAULT_VARIATION_PERCENT=%g", cfg.Defaults.VariationPercent)
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func emptyFallback(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
