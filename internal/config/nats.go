package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// NATSConfig configures publishing of sale events to NATS JetStream.
type NATSConfig struct {
	Enabled bool          `koanf:"enabled"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Stream  string        `koanf:"stream"`
}

// String returns a string representation of the NATS configuration.
func (c *NATSConfig) String() string {
	var b strings.Builder
	b.WriteString(section("NATS"))
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  url: %s\n", maskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  stream: %s\n", c.Stream))
	return b.String()
}

func (c *NATSConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.URL == "" {
		return errors.New("NATS url is required")
	}
	if c.Timeout <= 0 {
		return errors.New("NATS timeout must be positive")
	}
	if strings.TrimSpace(c.Stream) == "" {
		return errors.New("NATS stream is required")
	}
	return nil
}
