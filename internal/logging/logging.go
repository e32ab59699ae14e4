// Package logging sets up the process-wide zerolog logger, console or
// JSON depending on the RUST_LOG_JSON environment contract.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a logger writing console-formatted output unless jsonMode
// is set, in which case it writes raw JSON lines to stdout.
func New(jsonMode bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	if jsonMode {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(console).With().Timestamp().Logger()
}
