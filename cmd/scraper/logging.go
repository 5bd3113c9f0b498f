package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger logs to stderr, colourised on a terminal and JSON otherwise.
// With logFile set every record is also written as JSON to a rotating file.
func newLogger(verbose bool, logFile string) (*slog.Logger, func() error) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var console slog.Handler
	if isTerminal(os.Stderr) {
		console = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		console = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	if logFile == "" {
		return slog.New(console), func() error { return nil }
	}

	rotating := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // MB
		MaxBackups: 3,
		Compress:   true,
	}
	file := slog.NewJSONHandler(rotating, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(console, file)), rotating.Close
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
