package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns a structured logger: JSON in production, text otherwise.
func New(production bool, level slog.Level) *slog.Logger {
	return NewWithWriter(os.Stdout, production, level)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, production bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops everything. Used as the default by
// constructors that take an optional logger.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
