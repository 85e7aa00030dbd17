package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggingWithVmodule(t *testing.T) {
	out := new(bytes.Buffer)
	glog := NewGlogHandler(NewTerminalHandlerWithLevel(out, LevelTrace, false))
	glog.Verbosity(LevelCrit)
	logger := NewLogger(glog)
	logger.Warn("This should not be seen", "ignored", "true")
	if out.Len() != 0 {
		t.Fatalf("expected nothing logged below the verbosity threshold, got %q", out.String())
	}

	glog.Verbosity(LevelTrace)
	logger.Trace("a message", "foo", "bar")
	have := out.String()
	if !strings.Contains(have, "a message") || !strings.Contains(have, "foo=bar") {
		t.Errorf("unexpected output: %q", have)
	}
}

func TestTerminalHandlerWithAttrs(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(NewTerminalHandler(out, false))
	logger.Info("a message", "foo", "bar")
	have := out.String()
	if !strings.Contains(have, "a message") || !strings.Contains(have, "foo=bar") {
		t.Errorf("unexpected output: %q", have)
	}
}

func TestJSONHandler(t *testing.T) {
	out := new(bytes.Buffer)
	logger := NewLogger(JSONHandler(out))
	logger.Debug("hi there")
	if out.Len() == 0 {
		t.Error("expected non-empty debug log output from default JSON handler")
	}

	out.Reset()
	logger = NewLogger(JSONHandlerWithLevel(out, LevelInfo))
	logger.Debug("hi there")
	if out.Len() != 0 {
		t.Errorf("expected empty debug log output, but got: %v", out.String())
	}
}

func TestLoggerWith(t *testing.T) {
	out := new(bytes.Buffer)
	base := NewLogger(NewTerminalHandler(out, false))
	child := base.With("component", "gap")
	child.Info("admitted query", "ttl", 42)

	have := out.String()
	if !strings.Contains(have, "component=gap") {
		t.Errorf("expected inherited context in output, got %q", have)
	}
	if !strings.Contains(have, "ttl=42") {
		t.Errorf("expected call-site context in output, got %q", have)
	}
}
