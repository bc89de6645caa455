package main

import (
	"log/slog"
	"os"

	"github.com/phsym/console-slog"
)

const timeFormat string = "15:04:05.000"

func init() {
	setDefaultLogger(slog.LevelInfo)
}

// setDefaultLogger logs to stderr, as build tools
// may capture stdout of the steps
func setDefaultLogger(level slog.Level) {
	handler := console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level:      level,
		AddSource:  level <= slog.LevelDebug,
		TimeFormat: timeFormat,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
	slog.SetDefault(slog.New(handler))
}
