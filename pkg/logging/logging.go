// Package logging defines the structured logger used across the module.
// Messages carry key/value pairs so any structured backend can sit behind it.
package logging

import (
	"context"
	"io"
	"log/slog"
)

// Logger logs a message with alternating key/value pairs:
//
//	logger.Info("settings saved", "form", slug, "changed", n)
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Slog adapts a *slog.Logger.
type Slog struct {
	logger *slog.Logger
}

// NewSlog wraps l, falling back to slog.Default when l is nil.
func NewSlog(l *slog.Logger) *Slog {
	if l == nil {
		l = slog.Default()
	}
	return &Slog{logger: l}
}

// NewText returns a text handler logger writing to w at level.
func NewText(w io.Writer, level slog.Level) *Slog {
	return NewSlog(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func (l *Slog) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *Slog) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *Slog) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *Slog) Error(msg string, args ...any) { l.logger.Error(msg, args...) }

// With returns a logger that always includes args.
func (l *Slog) With(args ...any) *Slog {
	return &Slog{logger: l.logger.With(args...)}
}

// Enabled reports whether level would be emitted.
func (l *Slog) Enabled(ctx context.Context, level slog.Level) bool {
	return l.logger.Enabled(ctx, level)
}

type nop struct{}

func (nop) Debug(string, ...any) {}
func (nop) Info(string, ...any)  {}
func (nop) Warn(string, ...any)  {}
func (nop) Error(string, ...any) {}

// Nop discards everything.
func Nop() Logger { return nop{} }

// OrNop returns l, or Nop when l is nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// ParseLevel maps debug/info/warn/error to a slog level; unknown names
// default to info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
