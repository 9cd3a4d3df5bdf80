package internal

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// defaultLogFile is where the TUI writes its log when no file is configured.
const defaultLogFile = "trackspottr.log"

var errInvalidLogLevel = errors.New("invalid log level")

// LogParams contains the parameters for logging console output and errors.
// These will vary depending on whether the tracker runs in ticker or tui mode.
// # Ticker mode
// - console output goes to stdout
// - error logs go to stderr as text
// # TUI mode
// - console output is discarded, the terminal belongs to the TUI
// - error logs go to a rotated JSON log file
// .
type LogParams struct {
	ConsoleOut io.Writer
	ErrorOut   io.Writer
	// Closer releases the log file, nil when logging to a standard stream.
	Closer io.Closer
}

// ParseLogLevel converts a level name into a slog level.
func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("ParseLogLevel: %w: %q", errInvalidLogLevel, level)
}

// TickerLogParams logs text to stderr and prints updates to stdout.
func TickerLogParams() LogParams {
	return LogParams{ConsoleOut: os.Stdout, ErrorOut: os.Stderr}
}

// TUILogParams writes the error log to a size-rotated file so it never interferes with the TUI.
func TUILogParams(cfg LogConfig) LogParams {
	file := cfg.File
	if file == "" {
		file = defaultLogFile
	}
	w := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   true,
	}
	return LogParams{ConsoleOut: io.Discard, ErrorOut: w, Closer: w}
}

// NewLogger builds the application logger. Rotated log files get JSON records, standard streams
// get text.
func NewLogger(params LogParams, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lj, ok := params.ErrorOut.(*lumberjack.Logger); ok {
		handler = slog.NewJSONHandler(lj, opts)
	} else {
		handler = slog.NewTextHandler(params.ErrorOut, opts)
	}

	logger := slog.New(handler)
	if lj, ok := params.ErrorOut.(*lumberjack.Logger); ok {
		logger.Info("logging to file", slog.String("file", filepath.Clean(lj.Filename)))
	}
	logger.Debug("system information",
		slog.String("GOARCH", runtime.GOARCH),
		slog.String("GOOS", runtime.GOOS),
		slog.Int("NumCPUs", runtime.NumCPU()))

	return logger
}
