package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewInstallsPackageLogger(t *testing.T) {
	l, err := New("debug")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if InfoLogger != l || FatalLogger != l {
		t.Fatalf("package loggers not installed")
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug level not enabled")
	}
	Info("hello %s", "world")
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}
