package app

import (
	"io"
	"log/slog"
)

// newLogger builds the pipeline's slog.Logger from the configured level and
// format. The logger is instance scoped; nothing here touches slog's
// process-wide default, so isolated Apps can log side by side.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(levelStr)}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}

// parseLevel maps the CLI level names onto slog levels. The CLI validates
// the name before the App is built; anything else falls back to info.
func parseLevel(levelStr string) slog.Level {
	switch levelStr {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
