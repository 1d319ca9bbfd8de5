// Package logger builds the process-wide *slog.Logger.
//
// Everything in the server logs through log/slog. Only the handler changes:
//
//	json   → slog.JSONHandler, one object per line (production, log shippers)
//	text   → slog.TextHandler, key=value pairs
//	pretty → charmbracelet/log, coloured output for a developer terminal
//
// charmbracelet/log's *Logger implements slog.Handler, so it plugs straight
// into slog.New and callers never import it.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charm "github.com/charmbracelet/log"
)

const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatPretty = "pretty"
)

type Config struct {
	Writer io.Writer // defaults to os.Stdout
	Format string    // json, text or pretty; empty picks by Environment
	Level  string
	// Environment is used only when Format is empty:
	// production → json, anything else → pretty.
	Environment string
}

func New(cfg Config) *slog.Logger {
	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	format := strings.ToLower(cfg.Format)
	if format == "" {
		if cfg.Environment == "production" {
			format = FormatJSON
		} else {
			format = FormatPretty
		}
	}

	level := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(cfg.Writer, opts)
	case FormatPretty:
		handler = charm.NewWithOptions(cfg.Writer, charm.Options{
			ReportTimestamp: true,
			Level:           charmLevel(level),
		})
	default:
		handler = slog.NewTextHandler(cfg.Writer, opts)
	}

	return slog.New(handler)
}

// ParseLevel converts a string to slog.Level. Unknown values mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func charmLevel(l slog.Level) charm.Level {
	switch {
	case l <= slog.LevelDebug:
		return charm.DebugLevel
	case l <= slog.LevelInfo:
		return charm.InfoLevel
	case l <= slog.LevelWarn:
		return charm.WarnLevel
	default:
		return charm.ErrorLevel
	}
}

// Discard returns a logger that drops everything. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
