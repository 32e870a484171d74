package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// LogConfig holds logger configuration.
type LogConfig struct {
	// Level is the minimum log level to output.
	Level zerolog.Level
	// Output is where logs are written.
	Output io.Writer
	// Pretty enables human-readable console output.
	Pretty bool
}

// NewLogger builds a logger for one invocation. Run is reentrant, so there
// is no package-level logger.
func NewLogger(cfg LogConfig) zerolog.Logger {
	output := cfg.Output
	if output == nil {
		output = io.Discard
	}

	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(output).Level(cfg.Level).With().Timestamp().Logger()
}

// ParseLevel parses a log level name (case-insensitive).
// Supported values: trace, debug, info, warn, error.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q (want trace, debug, info, warn or error)", level)
	}
}

// ParseFormat reports whether format selects console output.
func ParseFormat(format string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		return false, nil
	case "console":
		return true, nil
	default:
		return false, fmt.Errorf("invalid log format %q (want json or console)", format)
	}
}

// debugfTo routes sandbox and toolset debug messages into logger.
func debugfTo(logger zerolog.Logger) sandbox.Debugf {
	if logger.GetLevel() > zerolog.DebugLevel {
		return nil
	}

	return func(format string, args ...any) {
		logger.Debug().Msgf(format, args...)
	}
}
