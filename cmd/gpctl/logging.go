package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"gpforge/internal/storage"
)

// commonFlags are accepted by every subcommand that touches the store.
type commonFlags struct {
	StoreKind string
	DBPath    string
	LogLevel  string
	LogFormat string
}

func newCommonFlags() *commonFlags {
	return &commonFlags{
		StoreKind: storage.DefaultStoreKind(),
		DBPath:    storage.DefaultSQLitePath,
		LogLevel:  "info",
		LogFormat: "auto",
	}
}

func (c *commonFlags) bind(fs *flag.FlagSet) {
	fs.StringVar(&c.StoreKind, "store", c.StoreKind, "store backend: memory|sqlite")
	fs.StringVar(&c.DBPath, "db-path", c.DBPath, "sqlite database path")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug|info|warn|error")
	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: auto|text|json")
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", raw)
	}
	return level, nil
}

// newLogger writes text to terminals and JSON everywhere else unless format
// forces one of them.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "auto":
		if isTerminal(w) {
			return slog.New(slog.NewTextHandler(w, opts)), nil
		}
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
