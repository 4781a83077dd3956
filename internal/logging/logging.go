// Package logging builds the process logger.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rshade/cofire-emissions/internal/config"
)

// ComponentName is attached to every log line.
const ComponentName = "cofire-emissions"

// New returns a zerolog.Logger writing to w at cfg.LogLevel. The console
// format is meant for interactive use; JSON is the default.
func New(w io.Writer, cfg config.Config) zerolog.Logger {
	out := w
	if cfg.LogFormat == config.LogFormatConsole {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(out).
		Level(cfg.LogLevel).
		With().
		Timestamp().
		Str("component", ComponentName).
		Logger()
}
