package logger

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger zerolog.Logger
	once         sync.Once
)

// GetLogger returns the process-wide logger. Before New runs it falls
// back to console output at info level, so init-time code can log too.
func GetLogger() zerolog.Logger {
	once.Do(func() {
		globalLogger = zerolog.New(consoleWriter()).With().Timestamp().Logger().Level(zerolog.InfoLevel)
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})
	return globalLogger
}

// New configures the global logger from the level and format settings
// and returns it. Format is "json" or "console".
func New(level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Logger{}, err
	}

	var out io.Writer
	switch strings.ToLower(format) {
	case "json":
		out = os.Stdout
	case "console":
		out = consoleWriter()
	default:
		return zerolog.Logger{}, errors.New("unsupported log format")
	}

	zerolog.SetGlobalLevel(lvl)
	globalLogger = zerolog.New(out).With().Timestamp().Logger().Level(lvl)
	return globalLogger, nil
}

// WithComponent returns the global logger tagged with a component name.
func WithComponent(name string) zerolog.Logger {
	return GetLogger().With().Str("component", name).Logger()
}

func consoleWriter() zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
}
