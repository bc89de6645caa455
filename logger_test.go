package warpdrive

import (
	"log/slog"
	"os"

	"github.com/cloudcopper/warpdrive/lib"
)

// Tests log at debug level, unless WARPDRIVE_TEST_LOG_LEVEL says otherwise
func init() {
	level := slog.LevelDebug
	if err := level.UnmarshalText([]byte(lib.GetEnvDefault("WARPDRIVE_TEST_LOG_LEVEL", "debug"))); err != nil {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	})
	slog.SetDefault(slog.New(handler).With(slog.String("pkg", "warpdrive")))
}
