package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		opts Options
		want zapcore.Level
	}{
		{Options{}, zapcore.InfoLevel},
		{Options{Level: "warn"}, zapcore.WarnLevel},
		{Options{Level: "warn", Verbose: true}, zapcore.DebugLevel},
		{Options{Level: "debug", Development: true}, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.opts)
		if err != nil {
			t.Fatalf("New(%+v): %v", tt.opts, err)
		}
		if logger.Level() != tt.want {
			t.Errorf("New(%+v) level = %v, want %v", tt.opts, logger.Level(), tt.want)
		}
	}
}

func TestNew_BadLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "questbot.log")
	logger, err := New(Options{File: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("quest started")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"msg":"quest started"`) {
		t.Errorf("log file = %s", data)
	}
}
