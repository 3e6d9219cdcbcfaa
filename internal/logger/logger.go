package logger

import (
	"io"
	"os"

	"github.com/S1M0N38/cr-db/internal/config"
	"github.com/rs/zerolog"
)

func New(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return SetLevel(os.Stdout, level)
}

func SetLevel(w io.Writer, level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(w).
		With().
		Timestamp().
		Caller().
		Logger()

	logger = logger.Level(level)

	return logger
}

// Goose adapts a zerolog logger to goose's migration logger.
type Goose struct {
	Logger zerolog.Logger
}

func (g Goose) Printf(format string, v ...interface{}) {
	g.Logger.Debug().Msgf(format, v...)
}

func (g Goose) Fatalf(format string, v ...interface{}) {
	g.Logger.Fatal().Msgf(format, v...)
}
