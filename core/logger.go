package core

import (
	"context"
	"fmt"
	"log/slog"
)

// Logger is the five-level logging surface every part of the scheduler
// depends on, matching the teacher's own interface shape so any of its
// adapters (slog, logrus, or an application's own) drop in unchanged.
type Logger interface {
	Criticalf(format string, args ...any)
	Debugf(format string, args ...any)
	Errorf(format string, args ...any)
	Noticef(format string, args ...any)
	Warningf(format string, args ...any)
}

// SlogLogger adapts a *slog.Logger to the Logger interface, the
// teacher's default logging backend outside of the logrus adapter.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{l: l}
}

var _ Logger = (*SlogLogger)(nil)

func (s *SlogLogger) Criticalf(format string, args ...any) {
	s.l.Log(context.Background(), slog.LevelError+4, sprintf(format, args...))
}

func (s *SlogLogger) Debugf(format string, args ...any) {
	s.l.Debug(sprintf(format, args...))
}

func (s *SlogLogger) Errorf(format string, args ...any) {
	s.l.Error(sprintf(format, args...))
}

func (s *SlogLogger) Noticef(format string, args ...any) {
	s.l.Info(sprintf(format, args...))
}

func (s *SlogLogger) Warningf(format string, args ...any) {
	s.l.Warn(sprintf(format, args...))
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
