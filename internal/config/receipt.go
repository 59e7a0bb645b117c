package config

import (
	"fmt"
	"strings"
	"time"
)

// ReceiptConfig controls ticket printing after a sale is finalized.
// Output is "stdout" or the path of a spool file.
type ReceiptConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Output    string `koanf:"output"`
	StoreName string `koanf:"storeName"`
	Footer    string `koanf:"footer"`
	// Breaker stops printing for OpenTimeout after ConsecutiveFailures failed prints; 0 disables it.
	Breaker struct {
		ConsecutiveFailures uint32        `koanf:"consecutiveFailures"`
		OpenTimeout         time.Duration `koanf:"openTimeout"`
	} `koanf:"breaker"`
}

// String returns a string representation of the receipt configuration.
func (c *ReceiptConfig) String() string {
	var b strings.Builder
	b.WriteString(section("Receipt"))
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.Enabled))
	b.WriteString(fmt.Sprintf("  output: %s\n", c.Output))
	b.WriteString(fmt.Sprintf("  storeName: %s\n", c.StoreName))
	b.WriteString(fmt.Sprintf("  breaker: consecutiveFailures=%d openTimeout=%s\n",
		c.Breaker.ConsecutiveFailures, c.Breaker.OpenTimeout))
	return b.String()
}

func (c *ReceiptConfig) Validate() error {
	if c.Enabled && strings.TrimSpace(c.StoreName) == "" {
		return fmt.Errorf("receipt printing is enabled but store name is not configured")
	}
	if c.Breaker.ConsecutiveFailures > 0 && c.Breaker.OpenTimeout <= 0 {
		return fmt.Errorf("invalid receipt breaker open timeout: %v", c.Breaker.OpenTimeout)
	}
	return nil
}
