package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variables read by Load.
// POS_SVC_DATABASE_URL maps to database.url.
const EnvPrefix = "POS_SVC_"

const (
	defaultConfigFile = "config.yaml"
	defaultEnvFile    = ".env"
)

// defaults let the service start with no configuration at all.
var defaults = map[string]any{
	"server.port":                         8080,
	"server.maxheaderbytes":               1 << 20,
	"server.timeout.read":                 "5s",
	"server.timeout.write":                "10s",
	"server.timeout.idle":                 "120s",
	"server.timeout.readheader":           "2s",
	"database.driver":                     DriverSQLite,
	"database.url":                        "pos.db",
	"database.timeout":                    "10s",
	"database.migrate":                    true,
	"log.level":                           "info",
	"pprof.enabled":                       false,
	"pprof.addr":                          "localhost:6060",
	"metrics.enabled":                     true,
	"shutdown.timeout":                    "15s",
	"receipt.enabled":                     true,
	"receipt.output":                      "stdout",
	"receipt.storename":                   "NEW STORE",
	"receipt.footer":                      "Thank you for your purchase!",
	"receipt.breaker.consecutivefailures": 3,
	"receipt.breaker.opentimeout":         "30s",
	"nats.enabled":                        false,
	"nats.url":                            "nats://localhost:4222",
	"nats.timeout":                        "5s",
	"nats.stream":                         "POS_SALES",
	"telemetry.enabled":                   false,
	"telemetry.servicename":               "pos-service",
	"telemetry.serviceversion":            "dev",
	"telemetry.environment":               "local",
	"telemetry.traces.sampleratio":        1.0,
	"telemetry.traces.otlphttp.endpoint":  "localhost:4318",
	"telemetry.traces.otlphttp.insecure":  true,
	"telemetry.traces.otlphttp.timeout":   "5s",
}

// Load reads config.yaml and .env from the working directory, then the environment.
func Load() (*Config, error) {
	return LoadFrom(defaultConfigFile, defaultEnvFile)
}

// LoadFrom builds the configuration from, in increasing priority: built-in defaults,
// the YAML file, the dotenv file and POS_SVC_ environment variables. Missing files are skipped.
func LoadFrom(configFile, envFile string) (*Config, error) {
	k := koanf.New(".")

	// Keys are folded to lower case so that every source overrides the same entry.
	merge := func(src *koanf.Koanf) error {
		flat := make(map[string]any, len(src.Keys()))
		for key, value := range src.All() {
			flat[strings.ToLower(key)] = value
		}
		return k.Load(confmap.Provider(flat, "."), nil)
	}

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// 2. YAML file
	fromFile := koanf.New(".")
	if err := fromFile.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("WARN: error loading YAML config file '%s': %v", configFile, err)
		}
	}
	if err := merge(fromFile); err != nil {
		return nil, fmt.Errorf("error merging YAML config: %w", err)
	}

	// 3. .env file
	envTransformer := func(key string) string {
		key = strings.ToLower(key)
		key = strings.TrimPrefix(key, strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(key, "_", ".")
	}
	if envFileMap, err := godotenv.Read(envFile); err == nil {
		envMap := make(map[string]any)
		for key, value := range envFileMap {
			if !strings.HasPrefix(strings.ToUpper(key), EnvPrefix) {
				continue
			}
			envMap[envTransformer(key)] = value
		}
		if err := k.Load(confmap.Provider(envMap, "."), nil); err != nil {
			log.Printf("WARN: error loading .env config: %v", err)
		}
	} else if !os.IsNotExist(err) {
		log.Printf("WARN: error reading .env file: %v", err)
	}

	// 4. System environment, the highest priority
	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformer), nil); err != nil {
		log.Printf("WARN: error loading system env vars: %v", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
