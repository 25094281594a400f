package engine

import "time"

// Defaults applied by Config.withDefaults.
const (
	DefaultTimeout              = 60 * time.Second
	DefaultCorrelationHeader    = "X-Nginx-Request-Handle"
	DefaultResponseHeaderPrefix = "x-response-"
	DefaultMaxRelayHeaders      = 100
)

// Config holds configuration for the engine.
type Config struct {
	// Timeout bounds how long a forwarded exchange waits for its response.
	Timeout time.Duration

	// CorrelationHeader names the response-channel header carrying the handle.
	CorrelationHeader string

	// ResponseHeaderPrefix selects response-channel headers copied onto the
	// original exchange, with the prefix removed. Matched case-insensitively.
	ResponseHeaderPrefix string

	// Backend labels metrics and journal entries.
	Backend string

	// MaxRelayHeaders caps the number of copied headers.
	MaxRelayHeaders int

	// MaxRelayBodySize caps the relayed body. Zero means unlimited.
	MaxRelayBodySize int64
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.CorrelationHeader == "" {
		c.CorrelationHeader = DefaultCorrelationHeader
	}
	if c.ResponseHeaderPrefix == "" {
		c.ResponseHeaderPrefix = DefaultResponseHeaderPrefix
	}
	if c.Backend == "" {
		c.Backend = "unknown"
	}
	if c.MaxRelayHeaders <= 0 {
		c.MaxRelayHeaders = DefaultMaxRelayHeaders
	}
	return c
}
