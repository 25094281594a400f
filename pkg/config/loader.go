package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/jsonhandler/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, JSONHANDLER_CONFIG env, ./config.yaml, /etc/jsonhandler/config.yaml)
//  3. JSONHANDLER_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. JSONHANDLER_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/jsonhandler/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if envPath := os.Getenv("JSONHANDLER_CONFIG"); envPath != "" {
		return envPath
	}
	for _, path := range []string{"config.yaml", "/etc/jsonhandler/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps JSONHANDLER_* environment variables onto cfg.
// Malformed numbers and durations are reported rather than ignored.
func applyEnvOverrides(cfg *Config) error {
	strs := []struct {
		env string
		dst *string
	}{
		{"JSONHANDLER_LIBRARY", &cfg.Handler.Library},
		{"JSONHANDLER_BACKEND", &cfg.Handler.Backend},
		{"JSONHANDLER_HANDLER_URL", &cfg.Handler.URL},
		{"JSONHANDLER_DOCUMENT", &cfg.Handler.Document},
		{"JSONHANDLER_NATS_URL", &cfg.Handler.NATS.URL},
		{"JSONHANDLER_NATS_SUBJECT", &cfg.Handler.NATS.Subject},
		{"JSONHANDLER_RESPONSE_URL", &cfg.Handler.ResponseURL},
		{"JSONHANDLER_RESPONSE_ROUTE", &cfg.Routes.Response},
		{"JSONHANDLER_CORRELATION_HEADER", &cfg.Routes.CorrelationHeader},
		{"JSONHANDLER_TEMP_DIR", &cfg.Body.TempDir},
		{"JSONHANDLER_JOURNAL", &cfg.Journal.Type},
		{"JSONHANDLER_JOURNAL_DSN", &cfg.Journal.Postgres.DSN},
		{"JSONHANDLER_AUTH_TYPE", &cfg.Auth.Type},
		{"JSONHANDLER_LOG_FORMAT", &cfg.Logging.Format},
	}
	for _, s := range strs {
		if v := os.Getenv(s.env); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("JSONHANDLER_FORWARD_ROUTES"); v != "" {
		cfg.Routes.Forward = splitList(v)
	}

	if v := os.Getenv("JSONHANDLER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("JSONHANDLER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("JSONHANDLER_REENTRANT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("JSONHANDLER_REENTRANT: %w", err)
		}
		cfg.Handler.Reentrant = b
	}
	if v := os.Getenv("JSONHANDLER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("JSONHANDLER_TIMEOUT: %w", err)
		}
		cfg.Handler.Timeout = d
	}
	if v := os.Getenv("JSONHANDLER_MEMORY_LIMIT"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("JSONHANDLER_MEMORY_LIMIT: %w", err)
		}
		cfg.Body.MemoryLimit = n
	}

	// JSONHANDLER_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("JSONHANDLER_API_KEYS"); v != "" {
		var keys []APIKeyConfig
		if err := json.Unmarshal([]byte(v), &keys); err != nil {
			return fmt.Errorf("JSONHANDLER_API_KEYS: %w", err)
		}
		cfg.Auth.APIKeys = keys
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	if cfg.Journal.Postgres.DSNFile != "" && cfg.Journal.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Journal.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("journal.postgres.dsn_file: %w", err)
		}
		cfg.Journal.Postgres.DSN = val
	}

	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
