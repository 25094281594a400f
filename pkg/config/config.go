// Package config provides unified configuration for the jsonhandler bridge.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (JSONHANDLER_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the bridge.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Handler       HandlerConfig       `yaml:"handler"`
	Routes        RoutesConfig        `yaml:"routes"`
	Body          BodyConfig          `yaml:"body"`
	Journal       JournalConfig       `yaml:"journal"`
	Auth          AuthConfig          `yaml:"auth"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
}

// HandlerConfig selects the external handler and how envelopes reach it.
type HandlerConfig struct {
	// Library is the short handler library name; "foo" loads libfoo.so.
	Library string `yaml:"library"`

	// Reentrant allows concurrent calls into the handler library. When
	// false, submissions are serialized.
	Reentrant bool `yaml:"reentrant"`

	// Backend is "library", "http", "nats" or "echo". Default: "library".
	Backend string `yaml:"backend"`

	// URL is the handler endpoint for the http backend.
	URL string `yaml:"url"`

	// Document names the JSON library encoding envelopes. Default: "encoding/json".
	Document string `yaml:"document"`

	// Timeout bounds how long a forwarded exchange waits for its response.
	Timeout time.Duration `yaml:"timeout"` // default: 60s

	// DispatchTimeout bounds a single submission to a remote backend.
	DispatchTimeout time.Duration `yaml:"dispatch_timeout"` // default: 10s

	NATS NATSConfig `yaml:"nats"`

	// ResponseURL is where the echo backend posts responses.
	ResponseURL string `yaml:"response_url"`
}

// NATSConfig holds settings for the nats backend.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"` // default: "jsonhandler.requests"
}

// RoutesConfig lists the locations served by the bridge.
type RoutesConfig struct {
	// Forward lists the locations whose requests are forwarded.
	Forward []string `yaml:"forward"`

	// Response is the response channel location. Default: "/response".
	Response string `yaml:"response"`

	// CorrelationHeader carries the handle on the response channel.
	CorrelationHeader string `yaml:"correlation_header"`

	// ResponseHeaderPrefix marks response channel headers that are copied,
	// prefix stripped, onto the original exchange.
	ResponseHeaderPrefix string `yaml:"response_header_prefix"`
}

// BodyConfig limits and buffers request bodies.
type BodyConfig struct {
	MaxSize         int64  `yaml:"max_size"`          // default: 10 MiB
	MemoryLimit     int64  `yaml:"memory_limit"`      // default: 1 MiB; larger bodies spool to temp_dir
	TempDir         string `yaml:"temp_dir"`          // default: os.TempDir()
	MaxRelaySize    int64  `yaml:"max_relay_size"`    // 0 = unlimited
	MaxRelayHeaders int    `yaml:"max_relay_headers"` // default: 100
}

// JournalConfig holds exchange journal settings.
type JournalConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory" or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory journal, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// AuthConfig protects the response channel and the exchange lookup.
type AuthConfig struct {
	Type          string         `yaml:"type"`           // "none", "apikey" or "jwt", default: "none"
	RequiredScope string         `yaml:"required_scope"` // optional
	APIKeys       []APIKeyConfig `yaml:"api_keys"`
	JWT           JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string   `yaml:"key" json:"key"`
	KeyFile string   `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string   `yaml:"subject" json:"subject"`
	Scopes  []string `yaml:"scopes" json:"scopes"`
}

// JWTConfig holds JWT/OIDC validation settings.
type JWTConfig struct {
	Issuer         string        `yaml:"issuer"`
	Audience       string        `yaml:"audience"`
	JWKSURL        string        `yaml:"jwks_url"`
	UserClaim      string        `yaml:"user_claim"`
	ScopesClaim    string        `yaml:"scopes_claim"`
	MetadataClaims []string      `yaml:"metadata_claims"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. JSONHANDLER_LOG_LEVEL and
// JSONHANDLER_DEBUG take precedence over Level and Debug.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Handler: HandlerConfig{
			Backend:         "library",
			Document:        "encoding/json",
			Timeout:         60 * time.Second,
			DispatchTimeout: 10 * time.Second,
			NATS: NATSConfig{
				Subject: "jsonhandler.requests",
			},
		},
		Routes: RoutesConfig{
			Response:             "/response",
			CorrelationHeader:    "X-Nginx-Request-Handle",
			ResponseHeaderPrefix: "x-response-",
		},
		Body: BodyConfig{
			MaxSize:         10 << 20,
			MemoryLimit:     1 << 20,
			MaxRelayHeaders: 100,
		},
		Journal: JournalConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
