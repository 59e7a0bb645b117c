package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// LogConfig selects the minimum level of the JSON logger.
type LogConfig struct {
	Level string `koanf:"level"`
}

func (c *LogConfig) String() string {
	return section("Log") + fmt.Sprintf("  level: %s\n", c.Level)
}

func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("invalid log level: %s", c.Level)
}

// PProfConfig serves net/http/pprof on a separate listener.
type PProfConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

func (c *PProfConfig) String() string {
	return section("PProf") + fmt.Sprintf("  enabled: %t\n  address: %s\n", c.Enabled, c.Addr)
}

func (c *PProfConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return fmt.Errorf("pprof is enabled but address is not configured")
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid pprof address %q: %w", c.Addr, err)
	}
	return nil
}

// MetricsConfig toggles the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

func (c *MetricsConfig) String() string {
	return section("Metrics") + fmt.Sprintf("  enabled: %t\n", c.Enabled)
}

func (c *MetricsConfig) Validate() error {
	return nil
}

// ShutdownConfig bounds how long each server may take to drain on SIGINT/SIGTERM.
type ShutdownConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

func (c *ShutdownConfig) String() string {
	return section("Shutdown") + fmt.Sprintf("  timeout: %s\n", c.Timeout)
}

func (c *ShutdownConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("shutdown timeout is not configured")
	}
	return nil
}
