// Package logging builds the process slog.Logger.
// Terminals get colorized output from tint, everything else gets JSON.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
)

// Output formats
const (
	FormatAuto   = "auto"
	FormatPretty = "pretty"
	FormatJSON   = "json"
)

// Options controls handler selection.
type Options struct {
	// Level is one of debug, info, warn, error (default: info)
	Level string

	// Format is auto, pretty or json (default: auto)
	Format string
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	pretty, err := usePretty(w, opts.Format)
	if err != nil {
		return nil, err
	}
	if pretty {
		return slog.New(tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
		})), nil
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// Validate reports unknown level or format names.
func (o Options) Validate() error {
	if _, err := ParseLevel(o.Level); err != nil {
		return err
	}
	switch strings.ToLower(o.Format) {
	case "", FormatAuto, FormatPretty, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown log format %q (valid: auto, pretty, json)", o.Format)
	}
}

// ParseLevel maps a level name to slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (valid: debug, info, warn, error)", s)
	}
}

func usePretty(w io.Writer, format string) (bool, error) {
	switch strings.ToLower(format) {
	case FormatPretty:
		return true, nil
	case FormatJSON:
		return false, nil
	case "", FormatAuto:
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("unknown log format %q (valid: auto, pretty, json)", format)
	}
}
