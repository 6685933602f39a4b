package config

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLogger_DefaultLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug enabled at default level, want info")
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info disabled at default level")
	}
}

func TestNewLogger_LevelFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	logger, err := NewLogger()
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if !logger.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug disabled with LOG_LEVEL=debug")
	}
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")

	if _, err := NewLogger(); err == nil {
		t.Error("expected error for invalid LOG_LEVEL")
	}
}
