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

package log

import (
	"context"
	"io"
	"log/slog"
)

// TerminalHandler formats records as human-readable key=value lines
// (time, level, message, then attributes).
// It's the default handler for a standalone gap daemon's stderr.
func NewTerminalHandler(wr io.Writer, useColor bool) slog.Handler {
	return NewTerminalHandlerWithLevel(wr, LevelDebug, useColor)
}

// NewTerminalHandlerWithLevel is like NewTerminalHandler but filters out
// records below the given level before they reach the writer.
func NewTerminalHandlerWithLevel(wr io.Writer, level Level, useColor bool) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	})
}

// JSONHandler emits one JSON object per record, used by a gap daemon run
// under a log aggregator instead of a terminal.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, LevelTrace)
}

func JSONHandlerWithLevel(wr io.Writer, level Level) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: level})
}

// LogfmtHandler emits logfmt-style key=value lines without terminal
// coloring, used by benchmark and scripted test harnesses.
func LogfmtHandler(wr io.Writer) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{Level: LevelTrace})
}

// GlogHandler adds glog-style dynamic verbosity to an underlying handler:
// the routing engine's admission trace can be turned up at runtime without
// restarting the process.
type GlogHandler struct {
	orig  slog.Handler
	level Level
}

func NewGlogHandler(h slog.Handler) *GlogHandler {
	return &GlogHandler{orig: h, level: LevelInfo}
}

// Verbosity sets the global verbosity threshold.
func (g *GlogHandler) Verbosity(level Level) {
	g.level = level
}

func (g *GlogHandler) Enabled(ctx context.Context, level Level) bool {
	return level >= g.level
}

func (g *GlogHandler) Handle(ctx context.Context, r slog.Record) error {
	if Level(r.Level) < g.level {
		return nil
	}
	return g.orig.Handle(ctx, r)
}

func (g *GlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &GlogHandler{orig: g.orig.WithAttrs(attrs), level: g.level}
}

func (g *GlogHandler) WithGroup(name string) slog.Handler {
	return &GlogHandler{orig: g.orig.WithGroup(name), level: g.level}
}
