// Package logging constructs the service logger. The logger is built once at
// startup and passed explicitly into every component; nothing in this
// repository logs through package-level state.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// New constructs a zerolog.Logger writing to w at the named level. Unknown
// level names fall back to info. Callers hosting the stdio MCP transport must
// pass os.Stderr so protocol frames on stdout stay clean.
func New(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}
