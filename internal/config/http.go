package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTPConfig configures the listener of the till API.
type HTTPConfig struct {
	Port           int `koanf:"port"`
	MaxHeaderBytes int `koanf:"maxHeaderBytes"`
	Timeout        struct {
		Read       time.Duration `koanf:"read"`
		Write      time.Duration `koanf:"write"`
		Idle       time.Duration `koanf:"idle"`
		ReadHeader time.Duration `koanf:"readHeader"`
	} `koanf:"timeout"`
}

func (c *HTTPConfig) String() string {
	var b strings.Builder
	b.WriteString(section("HTTP server"))
	fmt.Fprintf(&b, "  port: %d\n", c.Port)
	fmt.Fprintf(&b, "  maxHeaderBytes: %d\n", c.MaxHeaderBytes)
	fmt.Fprintf(&b, "  timeout: read=%s write=%s idle=%s readHeader=%s\n",
		c.Timeout.Read, c.Timeout.Write, c.Timeout.Idle, c.Timeout.ReadHeader)
	return b.String()
}

func (c *HTTPConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid HTTP server port: %d", c.Port)
	}
	if c.MaxHeaderBytes < 0 {
		return fmt.Errorf("invalid HTTP server max header bytes: %d", c.MaxHeaderBytes)
	}
	timeouts := []struct {
		name  string
		value time.Duration
	}{
		{"read", c.Timeout.Read},
		{"write", c.Timeout.Write},
		{"idle", c.Timeout.Idle},
		{"read header", c.Timeout.ReadHeader},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return fmt.Errorf("invalid HTTP server %s timeout: %v", t.name, t.value)
		}
	}
	return nil
}
