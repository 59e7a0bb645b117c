// Package config loads the service configuration from config.yaml, .env and the environment.
package config

import (
	"fmt"
	"strings"
)

// Config is the full service configuration.
type Config struct {
	HTTPServer HTTPConfig      `koanf:"server"`
	Database   DatabaseConfig  `koanf:"database"`
	Log        LogConfig       `koanf:"log"`
	PProf      PProfConfig     `koanf:"pprof"`
	Metrics    MetricsConfig   `koanf:"metrics"`
	Shutdown   ShutdownConfig  `koanf:"shutdown"`
	Receipt    ReceiptConfig   `koanf:"receipt"`
	NATS       NATSConfig      `koanf:"nats"`
	Telemetry  TelemetryConfig `koanf:"telemetry"`
}

// Validate checks every section.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.HTTPServer, &c.Database, &c.Log, &c.PProf, &c.Metrics, &c.Shutdown, &c.Receipt, &c.NATS, &c.Telemetry,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// String renders the configuration with credentials masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Metrics.String())
	b.WriteString(c.Shutdown.String())
	b.WriteString(c.Receipt.String())
	b.WriteString(c.NATS.String())
	b.WriteString(c.Telemetry.String())
	return b.String()
}

func maskURL(url string) string {
	if url == "" {
		return "<not configured>"
	}
	// Mask the URL by replacing the username and password with "****"
	parts := strings.Split(url, "@")
	if len(parts) == 2 {
		return "****@" + parts[1]
	}
	return url
}

func section(name string) string {
	return fmt.Sprintf("\n--- %s ---\n", name)
}
