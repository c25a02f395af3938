// ABOUTME: zerolog setup shared by the fifoplay binaries
// ABOUTME: Writes to a log file and optionally a console with color autodetection
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. When console is set, output is also
// written to stdout. The returned closer flushes the log file.
//
// log.Printf narrative messages are emitted at debug level, so "debug" shows
// them and "info" keeps only warnings, errors and explicit info events.
// Per-cycle details are at trace.
func Setup(file, level string, console bool) (io.Closer, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if file != "" {
		f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, zerolog.ConsoleWriter{Out: f, NoColor: true, TimeFormat: "15:04:05.000"})
		closer = f
	}

	if console || len(writers) == 0 {
		writers = append(writers, NewConsole(os.Stdout))
	}

	log.Logger = New(zerolog.MultiLevelWriter(writers...), lvl)
	return closer, nil
}

// New builds a timestamped logger at lvl
func New(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// NewConsole returns a human readable writer, colored only on terminals
func NewConsole(out *os.File) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(out.Fd()) && !isatty.IsCygwinTerminal(out.Fd()),
	}
}

// Module returns a logger tagged with a module name
func Module(name string) zerolog.Logger {
	return log.Logger.With().Str("module", name).Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
