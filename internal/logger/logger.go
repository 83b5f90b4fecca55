// Package logger provides structured logging for the codeharvest CLI.
// It wraps zerolog with a process-wide root logger. Output goes to stderr,
// rendered for humans when stderr is a terminal and as JSON lines otherwise.
// When verbose mode is enabled via the --verbose flag, debug messages are
// emitted as well.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

// Format selects how log events are rendered.
type Format string

// Available formats.
const (
	FormatAuto    Format = "auto"
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatConsole, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want auto, console or json)", s)
	}
}

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format  Format    = FormatAuto
	sink    io.Writer = os.Stderr
	root    zerolog.Logger
)

// switchWriter forwards to the currently configured sink, so loggers
// derived before a SetOutput or SetFormat call follow the change.
type switchWriter struct{}

func (switchWriter) Write(p []byte) (int, error) {
	mu.RLock()
	w := sink
	mu.RUnlock()
	return w.Write(p)
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	root = zerolog.New(switchWriter{}).With().Timestamp().Logger()
	mu.Lock()
	rebuild()
	mu.Unlock()
}

// rebuild recomputes the sink and level. Callers hold mu.
func rebuild() {
	tty := isTerminal(output)
	switch {
	case format == FormatConsole || (format == FormatAuto && tty):
		sink = zerolog.ConsoleWriter{Out: output, TimeFormat: time.Kitchen, NoColor: !tty}
	default:
		sink = output
	}
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	rebuild()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	rebuild()
}

// SetFormat sets the rendering format.
func SetFormat(f Format) {
	mu.Lock()
	defer mu.Unlock()
	format = f
	rebuild()
}

// Get returns the root logger.
func Get() *zerolog.Logger {
	return &root
}

// Named returns a child logger tagged with a component field.
func Named(component string) *zerolog.Logger {
	l := root.With().Str("component", component).Logger()
	return &l
}

// Debug logs a message at debug level. Only emitted in verbose mode.
func Debug(format string, args ...any) {
	root.Debug().Msgf(format, args...)
}

// Section logs a section header at debug level.
func Section(name string) {
	root.Debug().Msgf("=== %s ===", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	root.Info().Msgf(format, args...)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	root.Warn().Msgf(format, args...)
}
