// Package logging sets up the process logger: colored output on stdout
// and plain text in a daily log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// ParseLevel accepts debug, info, warn and error. Empty means info.
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
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

type Options struct {
	// Dir holds the daily files. Empty disables file logging.
	Dir   string
	Level slog.Level
	// Stdout defaults to os.Stdout
	Stdout io.Writer
}

// New builds the logger. The returned closer releases the log file.
func New(opts Options) (*slog.Logger, io.Closer, error) {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd())
	}
	console := tint.NewHandler(out, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.TimeOnly,
		NoColor:    !color,
	})

	if opts.Dir == "" {
		return slog.New(console), io.NopCloser(nil), nil
	}

	file, err := OpenDailyFile(opts.Dir)
	if err != nil {
		return nil, nil, err
	}
	text := slog.NewTextHandler(file, &slog.HandlerOptions{Level: opts.Level})
	return slog.New(fanout{console, text}), file, nil
}

// fanout sends each record to every handler that accepts its level
type fanout []slog.Handler

func (h fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, hh := range h {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(h))
	for i, hh := range h {
		out[i] = hh.WithAttrs(attrs)
	}
	return out
}

func (h fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(h))
	for i, hh := range h {
		out[i] = hh.WithGroup(name)
	}
	return out
}
