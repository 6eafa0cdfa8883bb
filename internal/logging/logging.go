package logging

import (
	"io"
	"log/slog"
	"os"
)

// Options selects level and encoding of the process logger.
type Options struct {
	// Verbose enables debug output; otherwise only warnings and errors
	// are printed.
	Verbose bool
	// JSON switches from logfmt-style text to one JSON object per line.
	JSON bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Init builds the logger described by opts, installs it as the slog
// default and returns it.
func Init(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	hopts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, hopts)
	} else {
		handler = slog.NewTextHandler(out, hopts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
