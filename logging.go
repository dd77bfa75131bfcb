// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package deferred

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured-logging sink used throughout this package: the
// reactor implementations log panicking callbacks through it, and Run logs
// lifecycle events (start, finish, reactor iteration errors, exit-hook
// panics). A rejected reentrant Run call returns ErrReentrantRun without
// logging.
// Built on github.com/joeycumines/logiface, a generics-based structured-
// logging facade, with github.com/joeycumines/stumpy as the default JSON
// encoder/writer.
//
// Category conventions used by this package: "promise", "reactor",
// "driver", "context".
type Logger struct {
	base *logiface.Logger[*stumpy.Event]
}

// NewLogger wraps a *logiface.Logger[*stumpy.Event] constructed by the
// caller (e.g. via stumpy.L.New), for callers that want control over the
// underlying writer, level, or field names.
func NewLogger(base *logiface.Logger[*stumpy.Event]) Logger {
	return Logger{base: base}
}

// NewDefaultLogger builds a Logger writing newline-delimited JSON to
// os.Stderr via stumpy, at the given minimum level.
func NewDefaultLogger(level logiface.Level) Logger {
	return Logger{base: stumpy.L.New(
		stumpy.L.WithStumpy(),
		logiface.WithLevel[*stumpy.Event](level),
	)}
}

func (l Logger) log(level logiface.Level, category, msg string, kv []any) {
	if l.base == nil {
		return
	}
	b := l.base.Build(level)
	if b == nil {
		return
	}
	b = b.Str("category", category)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		if key == "" {
			continue
		}
		b = b.Any(key, kv[i+1])
	}
	b.Log(msg)
}

// Debug logs a debug-level message tagged with category, with alternating
// key/value pairs appended as structured fields.
func (l Logger) Debug(category, msg string, kv ...any) {
	l.log(logiface.LevelDebug, category, msg, kv)
}

// Info logs an informational message tagged with category.
func (l Logger) Info(category, msg string, kv ...any) {
	l.log(logiface.LevelInformational, category, msg, kv)
}

// Warn logs a warning tagged with category.
func (l Logger) Warn(category, msg string, kv ...any) {
	l.log(logiface.LevelWarning, category, msg, kv)
}

// Error logs an error tagged with category. Reactor implementations call
// this after recovering a panic from a registered I/O or timer callback,
// so the program keeps running instead of crashing the whole process over
// one bad callback.
func (l Logger) Error(category, msg string, kv ...any) {
	l.log(logiface.LevelError, category, msg, kv)
}

var globalLoggerMu sync.RWMutex

// defaultLogger is the package-level Logger used by Reactor/Run
// constructors that aren't given an explicit WithLogger option. It
// defaults to a stumpy-backed logger at warning level writing to
// os.Stderr.
var defaultLogger = NewDefaultLogger(logiface.LevelWarning)

// SetDefaultLogger overrides defaultLogger for the remainder of the
// process's lifetime.
func SetDefaultLogger(l Logger) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	defaultLogger = l
}
