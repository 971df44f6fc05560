package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Level(t *testing.T) {
	logger, err := New("warn")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
