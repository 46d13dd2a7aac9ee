package logging

import (
	"testing"

	"github.com/zhouzirui/vibecheck/backend/internal/config"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewConsole(t *testing.T) {
	logger, err := New(config.LogConfig{Level: "debug", Format: "console"})
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if !logger.Core().Enabled(-1) {
		t.Fatal("expected debug level enabled")
	}
}
