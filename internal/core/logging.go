package core

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

const logFileName = "gchat.log"

// NewLogger opens the log file under the state directory. The terminal
// belongs to the TUI, so nothing is written to stderr. The returned closer
// releases the file.
func NewLogger(level string) (zerolog.Logger, io.Closer, error) {
	dir, err := EnsureHomeDir()
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	f, err := os.OpenFile(filepath.Join(dir, logFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	return NewLoggerTo(f, level), f, nil
}

// NewLoggerTo builds a logger writing JSON lines to w.
func NewLoggerTo(w io.Writer, level string) zerolog.Logger {
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
