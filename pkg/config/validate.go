package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rhuss/jsonhandler/pkg/document"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with its field path.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Port <= 0 {
		add("server.port must be > 0, got %d", c.Server.Port)
	}

	switch c.Handler.Backend {
	case "library", "":
		if c.Handler.Library == "" {
			add("handler.library is required when handler.backend is \"library\"")
		} else if strings.ContainsAny(c.Handler.Library, "/\\") {
			add("handler.library must be a short name, got %q", c.Handler.Library)
		}
	case "http":
		if c.Handler.URL == "" {
			add("handler.url is required when handler.backend is \"http\"")
		}
	case "nats":
		if c.Handler.NATS.URL == "" {
			add("handler.nats.url is required when handler.backend is \"nats\"")
		}
	case "echo":
		// handler.response_url falls back to the local response route.
	default:
		add("handler.backend must be \"library\", \"http\", \"nats\" or \"echo\", got %q", c.Handler.Backend)
	}

	if c.Handler.Document != "" && !slices.Contains(document.Names(), c.Handler.Document) {
		add("handler.document must be one of %v, got %q", document.Names(), c.Handler.Document)
	}
	if c.Handler.Timeout <= 0 {
		add("handler.timeout must be > 0, got %s", c.Handler.Timeout)
	}

	if len(c.Routes.Forward) == 0 {
		add("routes.forward needs at least one location")
	}
	for i, route := range c.Routes.Forward {
		if !strings.HasPrefix(route, "/") {
			add("routes.forward[%d] must start with /, got %q", i, route)
		}
		if route == c.Routes.Response {
			add("routes.forward[%d] duplicates routes.response %q", i, route)
		}
	}
	if !strings.HasPrefix(c.Routes.Response, "/") {
		add("routes.response must start with /, got %q", c.Routes.Response)
	}
	if c.Routes.CorrelationHeader == "" {
		add("routes.correlation_header is required")
	}
	if c.Routes.ResponseHeaderPrefix == "" {
		add("routes.response_header_prefix is required")
	}

	if c.Body.MaxSize < 0 || c.Body.MaxRelaySize < 0 || c.Body.MaxRelayHeaders < 0 {
		add("body limits must not be negative")
	}

	switch c.Journal.Type {
	case "none", "memory":
	case "postgres":
		if c.Journal.Postgres.DSN == "" && c.Journal.Postgres.DSNFile == "" {
			add("journal.postgres.dsn or journal.postgres.dsn_file is required when journal.type is \"postgres\"")
		}
	default:
		add("journal.type must be \"none\", \"memory\" or \"postgres\", got %q", c.Journal.Type)
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			add("auth.api_keys is required when auth.type is \"apikey\"")
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" && k.KeyFile == "" {
				add("auth.api_keys[%d] needs key or key_file", i)
			}
			if k.Subject == "" {
				add("auth.api_keys[%d].subject is required", i)
			}
		}
	case "jwt":
		if c.Auth.JWT.JWKSURL == "" {
			add("auth.jwt.jwks_url is required when auth.type is \"jwt\"")
		}
	default:
		add("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type)
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		add("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format)
	}

	return errors.Join(errs...)
}
