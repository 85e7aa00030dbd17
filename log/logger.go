// Copyright 2023 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// Package log provides the structured, keyval-style logging used
// throughout gap: the routing engine logs admission decisions, the
// migration pusher logs blocks it could not send, and the lookup worker
// logs datastore errors, all with the component name as context rather than
// string-formatted messages.
package log

import (
	"context"
	"log/slog"
	"os"
)

// Level mirrors slog.Level with names matching the teacher's log package.
type Level = slog.Level

const (
	LevelTrace Level = slog.Level(-8)
	LevelDebug Level = slog.LevelDebug
	LevelInfo  Level = slog.LevelInfo
	LevelWarn  Level = slog.LevelWarn
	LevelError Level = slog.LevelError
	LevelCrit  Level = slog.Level(12)
)

// Logger is the interface every gap component is handed instead of
// calling the package-level functions directly, so tests can substitute a
// recording logger.
type Logger interface {
	With(ctx ...any) Logger
	New(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	Crit(msg string, ctx ...any)

	Enabled(ctx context.Context, level Level) bool
	Handler() slog.Handler
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler as a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

func (l *logger) New(ctx ...any) Logger {
	return l.With(ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.inner.Log(context.Background(), LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.inner.Debug(msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.inner.Info(msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.inner.Warn(msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.inner.Error(msg, ctx...) }
func (l *logger) Crit(msg string, ctx ...any) {
	l.inner.Log(context.Background(), LevelCrit, msg, ctx...)
	os.Exit(1)
}

func (l *logger) Enabled(ctx context.Context, level Level) bool { return l.inner.Enabled(ctx, level) }
func (l *logger) Handler() slog.Handler                         { return l.inner.Handler() }
