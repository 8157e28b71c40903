// Package logging builds the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New returns a console logger in development and a JSON logger in
// production. It also becomes the global logger.
func New(env, level string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	w := out
	if env != "production" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}
	logger := zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "firechat").Logger()

	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	return logger
}
