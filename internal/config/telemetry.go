package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TelemetryConfig configures OpenTelemetry trace export over OTLP/HTTP.
// Environment becomes the deployment.environment.name resource attribute.
type TelemetryConfig struct {
	Enabled        bool         `koanf:"enabled"`
	ServiceName    string       `koanf:"serviceName"`
	ServiceVersion string       `koanf:"serviceVersion"`
	Environment    string       `koanf:"environment"`
	Traces         TracesConfig `koanf:"traces"`
}

// SampleRatio is the fraction of new traces kept; child spans follow their parent.
type TracesConfig struct {
	SampleRatio float64        `koanf:"sampleRatio"`
	OtlpHttp    OtlpHttpConfig `koanf:"otlphttp"`
}

type OtlpHttpConfig struct {
	Endpoint string        `koanf:"endpoint"`
	Insecure bool          `koanf:"insecure"`
	Timeout  time.Duration `koanf:"timeout"`
}

func (c *TelemetryConfig) String() string {
	var b strings.Builder
	b.WriteString(section("Telemetry"))
	fmt.Fprintf(&b, "  enabled: %t\n", c.Enabled)
	fmt.Fprintf(&b, "  serviceName: %s\n", c.ServiceName)
	fmt.Fprintf(&b, "  serviceVersion: %s\n", c.ServiceVersion)
	fmt.Fprintf(&b, "  environment: %s\n", c.Environment)
	fmt.Fprintf(&b, "  traces.sampleRatio: %g\n", c.Traces.SampleRatio)
	fmt.Fprintf(&b, "  traces.otlphttp.endpoint: %s\n", c.Traces.OtlpHttp.Endpoint)
	fmt.Fprintf(&b, "  traces.otlphttp.insecure: %t\n", c.Traces.OtlpHttp.Insecure)
	fmt.Fprintf(&b, "  traces.otlphttp.timeout: %s\n", c.Traces.OtlpHttp.Timeout)
	return b.String()
}

func (c *TelemetryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return errors.New("telemetry service name is not configured")
	}
	if c.Traces.SampleRatio < 0 || c.Traces.SampleRatio > 1 {
		return fmt.Errorf("telemetry sample ratio %g is outside [0, 1]", c.Traces.SampleRatio)
	}
	if c.Traces.OtlpHttp.Endpoint == "" {
		return errors.New("OTel endpoint is not configured")
	}
	if c.Traces.OtlpHttp.Timeout <= 0 {
		return errors.New("telemetry timeout must be greater than 0")
	}
	return nil
}
