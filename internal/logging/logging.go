// Package logging provides the single process-wide structured logger used
// by every gitalky component that needs to report a non-fatal condition.
package logging

import (
	"os"

	"github.com/rs/zerolog"
)

// Log is the shared logger. Level defaults to info; cmd/gitalky raises it
// to debug when the --debug flag is set.
var Log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	With().
	Timestamp().
	Logger()

// SetDebug switches the shared logger to debug level.
func SetDebug(enabled bool) {
	if enabled {
		Log = Log.Level(zerolog.DebugLevel)
		return
	}
	Log = Log.Level(zerolog.InfoLevel)
}
