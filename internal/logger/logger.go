// Package logger builds prefixed charm loggers for the keylex services.
//
// Loggers write to stderr without exception: stdout belongs to the msgpack
// IPC stream, and a single stray log line there corrupts it.
package logger

import (
	"os"

	"github.com/charmbracelet/log"
)

// Default creates a prefixed logger that follows the global log level.
func Default(prefix string) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		ReportCaller:    false,
		ReportTimestamp: false,
		Formatter:       log.TextFormatter,
		Level:           log.GetLevel(),
	})
}

// NewWithConfig creates a prefixed logger with explicit options.
func NewWithConfig(prefix string, level log.Level, caller, timestamp bool, formatter log.Formatter) *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: timestamp,
		Formatter:       formatter,
	})
}
