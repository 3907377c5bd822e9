package logger

import (
	"io"

	"github.com/rs/zerolog"
)

// NewTestLogger drops every event.
func NewTestLogger() Logger {
	return Logger{Logger: zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

// NewBufferedTestLogger emits JSON lines from debug level up into w, with the
// same field names the service logs in production.
func NewBufferedTestLogger(w io.Writer) Logger {
	return Logger{Logger: zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger()}
}
