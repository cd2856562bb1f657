package telemetry

import (
	"fmt"
	"time"
)

// Config holds telemetry configuration.
type Config struct {
	Enabled         bool          `koanf:"enabled"`
	ServiceName     string        `koanf:"service_name"`
	ServiceVersion  string        `koanf:"service_version"`
	Protocol        string        `koanf:"protocol"`
	Endpoint        string        `koanf:"endpoint"`
	Insecure        bool          `koanf:"insecure"`
	SampleRate      float64       `koanf:"sample_rate"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Metrics         MetricsConfig `koanf:"metrics"`
}

// MetricsConfig controls the Prometheus Pushgateway export.
// An empty PushgatewayURL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `koanf:"pushgateway_url"`
	Job            string `koanf:"job"`
}

// NewDefaultConfig returns telemetry disabled with local collector defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:         false,
		ServiceName:     "promptwright",
		ServiceVersion:  "dev",
		Protocol:        "grpc",
		Endpoint:        "localhost:4317",
		Insecure:        true,
		SampleRate:      1.0,
		ShutdownTimeout: 5 * time.Second,
		Metrics: MetricsConfig{
			Job: "promptwright",
		},
	}
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required when telemetry is enabled")
	}
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required when telemetry is enabled")
	}
	switch c.Protocol {
	case "", "grpc", "http", "http/protobuf":
	default:
		return fmt.Errorf("protocol must be grpc or http, got %q", c.Protocol)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample_rate must be within [0,1], got %v", c.SampleRate)
	}
	return nil
}
