// Package logging provides the structured logger used across the ecs
// runtime and its satellite packages, wrapping logrus the way the rest of
// this module's ambient stack does.
package logging

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
)

// ContextKey is the type used for values this package stores on a
// context.Context, kept distinct to avoid collisions with other packages.
type ContextKey string

const (
	SessionIDKey ContextKey = "session_id"
	FrameKey     ContextKey = "frame"
)

// Logger wraps a *logrus.Logger with the session identifier that tags
// every entry emitted by one World.
type Logger struct {
	*logrus.Logger
	session string
}

// New builds a Logger at the given level ("debug", "info", "warn",
// "error") and format ("json" or "text"), tagged with session.
func New(session, level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{Logger: l, session: session}
}

// NewDefault builds a text-formatted, info-level logger for session.
func NewDefault(session string) *Logger {
	return New(session, "info", "text")
}

// WithContext attaches any request-scoped fields found on ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.WithField("session_id", l.session)
	if frame, ok := ctx.Value(FrameKey).(uint64); ok {
		entry = entry.WithField("frame", frame)
	}
	return entry
}

// WithFrame returns an entry tagged with the given frame number.
func (l *Logger) WithFrame(frame uint64) *logrus.Entry {
	return l.WithField("session_id", l.session).WithField("frame", frame)
}
