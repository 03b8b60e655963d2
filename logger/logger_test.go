package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestHelpersBeforeInitAreNoops(t *testing.T) {
	// Must not panic with a nil global logger.
	Debug("debug", String("k", "v"))
	Info("info", Int("n", 1))
	Warn("warn", Bool("b", true))
	Error("error", Float64("f", 1.5))
	if L() == nil {
		t.Fatal("L() returned nil before init")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want zapcore.Level
	}{
		{DebugLevel, zapcore.DebugLevel},
		{InfoLevel, zapcore.InfoLevel},
		{WarnLevel, zapcore.WarnLevel},
		{ErrorLevel, zapcore.ErrorLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "devamp.log")
	if err := InitLogger(Config{Level: DebugLevel, OutputPath: path, MaxSize: 1, Quiet: true}); err != nil {
		t.Fatalf("InitLogger: %v", err)
	}
	Info("track loaded", String("track", "A.mp3"), Int("index", 0))
	Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"track":"A.mp3"`) {
		t.Errorf("log file missing field, got %s", data)
	}
}
