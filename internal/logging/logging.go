package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const appName = "taskflow"

// New builds a logger writing to w. format is one of text, logfmt or json.
func New(w io.Writer, level, format string) (*log.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	if strings.TrimSpace(level) == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", level, err)
	}
	formatter, err := parseFormatter(format)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       formatter,
	}), nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// OrDefault returns l, or the package default logger when l is nil.
func OrDefault(l *log.Logger) *log.Logger {
	if l != nil {
		return l
	}
	return log.Default()
}

func parseFormatter(format string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return log.TextFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("unknown log format %q", format)
	}
}
