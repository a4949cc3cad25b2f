// Package applog provides the crawler's process-wide structured logger.
package applog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide logger. Set by Init; usable with its zero
// value (zerolog's default level/writer) before Init runs.
var Logger zerolog.Logger

// Init configures Logger to write level-colored, human-readable lines to
// stderr and sets the global minimum level.
func Init(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()

	return nil
}

func Info(msg string) { Logger.Info().Msg(msg) }

func Infof(format string, args ...interface{}) { Logger.Info().Msgf(format, args...) }

func Warnf(format string, args ...interface{}) { Logger.Warn().Msgf(format, args...) }

func Error(err error, msg string) { Logger.Error().Err(err).Msg(msg) }

func Errorf(format string, args ...interface{}) { Logger.Error().Msgf(format, args...) }

func Debugf(format string, args ...interface{}) { Logger.Debug().Msgf(format, args...) }

func Fatal(err error, msg string) { Logger.Fatal().Err(err).Msg(msg) }
