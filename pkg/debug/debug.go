// Package debug provides category-based debug logging for jsonhandler.
//
// Categories select WHAT gets logged (JSONHANDLER_DEBUG or logging.debug),
// the level selects HOW MUCH (JSONHANDLER_LOG_LEVEL or logging.level).
//
//	debug.Log("dispatch", "submit", "handle", h, "backend", name)
//	if debug.Enabled("relay") { /* expensive formatting */ }
//
// Categories: binding, dispatch, relay, transport, journal, config, auth, all.
// Levels: ERROR, WARN, INFO, DEBUG, TRACE.
package debug

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Environment variables read by Init. They win over configured values.
const (
	EnvCategories = "JSONHANDLER_DEBUG"
	EnvLevel      = "JSONHANDLER_LOG_LEVEL"
)

// LevelTrace sits below slog.LevelDebug. At TRACE complete envelopes
// and relayed bodies are written out.
const LevelTrace = slog.LevelDebug - 4

// categories is read-only after Init.
var categories map[string]bool

func init() {
	categories = parseCategories(os.Getenv(EnvCategories))
}

// Options configures the process-wide logger.
type Options struct {
	Categories string
	Level      string
	// Format is "text" (default) or "json".
	Format string
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init installs the default slog logger and the enabled categories.
func Init(opts Options) {
	cats := os.Getenv(EnvCategories)
	if cats == "" {
		cats = opts.Categories
	}
	categories = parseCategories(cats)

	level := os.Getenv(EnvLevel)
	if level == "" {
		level = opts.Level
	}
	slog.SetDefault(slog.New(NewHandler(opts.Output, opts.Format, ParseLevel(level))))
}

// NewHandler builds the slog handler used by Init.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	if w == nil {
		w = os.Stderr
	}
	hopts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == LevelTrace {
				a.Value = slog.StringValue("TRACE")
			}
			return a
		},
	}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, hopts)
	}
	return slog.NewTextHandler(w, hopts)
}

// Enabled reports whether the category is switched on.
func Enabled(category string) bool {
	return categories["all"] || categories[category]
}

// Log emits a DEBUG record tagged with the category. No-op when the
// category is off.
func Log(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Debug(msg, append([]any{"debug", category}, args...)...)
}

// Trace emits a TRACE record tagged with the category.
func Trace(category string, msg string, args ...any) {
	if !Enabled(category) {
		return
	}
	slog.Log(context.Background(), LevelTrace, msg, append([]any{"debug", category}, args...)...)
}

// TraceIsEnabled reports whether TRACE output is active for the category.
func TraceIsEnabled(category string) bool {
	if !Enabled(category) {
		return false
	}
	return slog.Default().Enabled(context.Background(), LevelTrace)
}

// Raw writes text to stderr unformatted, for copy-pasteable envelopes.
// Only emitted at TRACE with the category enabled.
func Raw(category string, text string) {
	if !TraceIsEnabled(category) {
		return
	}
	fmt.Fprintln(os.Stderr, text)
}

// ParseLevel converts a level name to a slog.Level. Unknown names map to INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRACE":
		return LevelTrace
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Categories returns the enabled categories, sorted.
func Categories() []string {
	result := make([]string, 0, len(categories))
	for k := range categories {
		result = append(result, k)
	}
	sort.Strings(result)
	return result
}

// Truncate shortens s to maxLen bytes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

func parseCategories(s string) map[string]bool {
	m := make(map[string]bool)
	for _, cat := range strings.Split(s, ",") {
		cat = strings.TrimSpace(strings.ToLower(cat))
		if cat != "" {
			m[cat] = true
		}
	}
	return m
}
