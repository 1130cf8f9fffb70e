// Package cli holds the setup shared by the stse command-line tools:
// operational logging, bridge logging and protocol trace files.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pion/logging"

	"github.com/stse-tools/stse-go/pkg/log"
)

// ParseLevel maps a -log-level flag value to an slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log level %q (must be debug, info, warn or error)", s)
	}
	return level, nil
}

// Loggers bundles the loggers a tool hands to the library packages.
type Loggers struct {
	// Logger receives operational logs.
	Logger *slog.Logger

	// Factory creates leveled loggers for the bridge and discovery
	// packages.
	Factory logging.LoggerFactory
}

// NewLoggers creates text loggers writing to w at the given level.
func NewLoggers(w io.Writer, level string) (Loggers, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return Loggers{}, err
	}

	factory := logging.NewDefaultLoggerFactory()
	factory.Writer = w
	factory.DefaultLogLevel = pionLevel(lvl)

	return Loggers{
		Logger:  slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})),
		Factory: factory,
	}, nil
}

func pionLevel(level slog.Level) logging.LogLevel {
	switch {
	case level <= slog.LevelDebug:
		return logging.LogLevelDebug
	case level <= slog.LevelInfo:
		return logging.LogLevelInfo
	case level <= slog.LevelWarn:
		return logging.LogLevelWarn
	default:
		return logging.LogLevelError
	}
}

// ProtocolLog is an open protocol trace destination.
type ProtocolLog struct {
	log.Logger
	file *log.FileLogger
}

// OpenProtocolLog opens the trace file at path. With an empty path the
// returned logger discards events. When debug is set, events are also
// written to logger.
func OpenProtocolLog(path string, logger *slog.Logger, debug bool) (*ProtocolLog, error) {
	var sinks []log.Logger
	p := &ProtocolLog{}

	if path != "" {
		f, err := log.NewFileLogger(path)
		if err != nil {
			return nil, err
		}
		p.file = f
		sinks = append(sinks, f)
	}
	if debug && logger != nil {
		sinks = append(sinks, log.NewSlogAdapter(logger))
	}

	switch len(sinks) {
	case 0:
		p.Logger = log.NoopLogger{}
	case 1:
		p.Logger = sinks[0]
	default:
		p.Logger = log.NewMultiLogger(sinks...)
	}
	return p, nil
}

// Close closes the trace file and reports events that could not be
// written.
func (p *ProtocolLog) Close() error {
	if p.file == nil {
		return nil
	}
	if err := p.file.Close(); err != nil {
		return err
	}
	if dropped := p.file.Dropped(); dropped > 0 {
		return fmt.Errorf("protocol log %s: %d events dropped", p.file.Path(), dropped)
	}
	return nil
}
