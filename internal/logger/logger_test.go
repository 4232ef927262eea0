package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewFallsBackToInfoOnBadLevel(t *testing.T) {
	l, err := New("nonsense", "json")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be disabled for fallback info level")
	}
	if !l.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be enabled")
	}
}

func TestNewDebugLevel(t *testing.T) {
	l, err := New("DEBUG", "console")
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !l.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("debug should be enabled")
	}
}
