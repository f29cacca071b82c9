package presentation

import (
	"context"
	"log/slog"
)

// LogSink mirrors display events to a structured logger. Tables are logged
// by shape only.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Publish(evt Event) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []slog.Attr{
		slog.String("session", evt.Session),
		slog.String("kind", string(evt.Level)),
		slog.Uint64("seq", evt.Seq),
	}
	if evt.Level == LevelTable {
		attrs = append(attrs, slog.Int("columns", len(evt.Columns)), slog.Int("rows", len(evt.Rows)))
	} else {
		attrs = append(attrs, slog.String("text", evt.Text))
	}
	logger.LogAttrs(context.Background(), logLevel(evt.Level), "display", attrs...)
}

func logLevel(level Level) slog.Level {
	switch level {
	case LevelError:
		return slog.LevelError
	case LevelWarning:
		return slog.LevelWarn
	case LevelTable, LevelText:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
