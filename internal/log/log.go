// Package log provides centralized logging functionality using zerolog.
package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stderr).Level(zerolog.InfoLevel).With().Timestamp().Logger()

// Init initializes the package-level logger. Debug enables debug events and a
// human-readable console format.
func Init(debug bool) {
	if debug {
		InitWithWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}, zerolog.DebugLevel)
		return
	}
	InitWithWriter(os.Stderr, zerolog.InfoLevel)
}

// InitWithWriter initializes the package-level logger with an explicit sink
func InitWithWriter(w io.Writer, level zerolog.Level) {
	logger = zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Logger returns the package-level logger
func Logger() *zerolog.Logger {
	return &logger
}

// Component returns a child logger tagged with a component name
func Component(name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Package-level convenience functions
func Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}

func Infof(format string, args ...interface{}) {
	logger.Info().Msgf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

func Fatalf(format string, args ...interface{}) {
	logger.Fatal().Msgf(format, args...)
}
