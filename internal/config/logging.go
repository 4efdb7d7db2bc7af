package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/mrz1836/sigilid/internal/fileutil"
)

// ParseLogLevel parses a log level string. Unknown values map to error.
func ParseLogLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none":
		return zerolog.Disabled
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// Logger writes structured logs to a file.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	logger zerolog.Logger
}

// NewLogger opens filePath for appending and logs at level. An "off" level
// or an empty path yields a logger that discards everything.
func NewLogger(level, filePath string) (*Logger, error) {
	lvl := ParseLogLevel(level)
	if lvl == zerolog.Disabled || filePath == "" {
		return NullLogger(), nil
	}

	filePath = ExpandHome(filePath)
	if err := os.MkdirAll(filepath.Dir(filePath), fileutil.PrivateDirPerm); err != nil {
		return nil, err
	}

	// #nosec G304 -- log file path is from validated config
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, fileutil.PrivateFilePerm)
	if err != nil {
		return nil, err
	}

	return &Logger{
		file:   f,
		logger: newZerolog(f, lvl),
	}, nil
}

func newZerolog(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NullLogger returns a logger that discards all output.
func NullLogger() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Zerolog returns the logger handed to components.
func (l *Logger) Zerolog() zerolog.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger
}

// SetLevel changes the log level of loggers obtained afterwards.
func (l *Logger) SetLevel(level zerolog.Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = l.logger.Level(level)
}

// Level returns the current log level.
func (l *Logger) Level() zerolog.Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.logger.GetLevel()
}

// Close closes the log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	l.logger = zerolog.Nop()
	return err
}
