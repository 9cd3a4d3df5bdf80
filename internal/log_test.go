package internal

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/natefinch/lumberjack.v2"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "INFO", expected: slog.LevelInfo},
		{input: "", expected: slog.LevelInfo},
		{input: " warning ", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "trace", expected: slog.LevelInfo, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := ParseLogLevel(test.input)
			if test.wantErr != errors.Is(err, errInvalidLogLevel) {
				t.Errorf("ParseLogLevel(%q) error = %v, want error %v", test.input, err, test.wantErr)
			}
			if got != test.expected {
				t.Errorf("ParseLogLevel(%q) = %v, want %v", test.input, got, test.expected)
			}
		})
	}
}

func TestNewLoggerTextOnStreams(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogParams{ConsoleOut: &buf, ErrorOut: &buf}, slog.LevelWarn)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("track", "4ca7b5"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %q", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "track=4ca7b5") {
		t.Errorf("want text record, got %q", out)
	}
}

func TestTUILogParamsRotatesFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "tui.log")
	params := TUILogParams(LogConfig{File: file, MaxSizeMB: 1, MaxBackups: 1})
	t.Cleanup(func() { _ = params.Closer.Close() })

	lj, ok := params.ErrorOut.(*lumberjack.Logger)
	if !ok {
		t.Fatalf("want lumberjack writer, got %T", params.ErrorOut)
	}
	if lj.Filename != file || lj.MaxSize != 1 {
		t.Errorf("unexpected rotation settings %+v", lj)
	}

	if params.ConsoleOut != io.Discard {
		t.Errorf("want console output discarded, got %T", params.ConsoleOut)
	}
}
