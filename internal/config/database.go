package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver  string        `koanf:"driver"`
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
	Migrate bool          `koanf:"migrate"`
}

// String returns a string representation of the database configuration.
func (c *DatabaseConfig) String() string {
	var b strings.Builder
	b.WriteString(section("Database"))
	b.WriteString(fmt.Sprintf("  driver: %s\n", c.Driver))
	b.WriteString(fmt.Sprintf("  url: %s\n", maskURL(c.URL)))
	b.WriteString(fmt.Sprintf("  timeout: %s\n", c.Timeout))
	b.WriteString(fmt.Sprintf("  migrate: %t\n", c.Migrate))
	return b.String()
}

func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres:
		if c.URL == "" {
			return fmt.Errorf("database URL is not configured")
		}
		if !isValidPostgresURL(c.URL) {
			return fmt.Errorf("database URL must start with 'postgres://': %s", maskURL(c.URL))
		}
	case DriverSQLite, DriverMySQL:
		if c.URL == "" {
			return fmt.Errorf("database URL is not configured")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Driver)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid database timeout: %v", c.Timeout)
	}
	return nil
}

// isValidPostgresURL checks if the provided URL is a valid PostgreSQL URL
func isValidPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") ||
		strings.HasPrefix(url, "postgresql://")
}
