package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string
	Format string
}

// New builds the process logger. Console output is used when format is
// "console" or APP_ENV=dev; every line carries the component field.
func New(cfg Config, component string) zerolog.Logger {
	return NewWithWriter(os.Stdout, cfg, component)
}

func NewWithWriter(out io.Writer, cfg Config, component string) zerolog.Logger {
	if cfg.Format == "console" || strings.ToLower(os.Getenv("APP_ENV")) == "dev" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("component", component).Logger()
}
