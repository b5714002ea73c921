package logger

import (
	"io"
	"os"
	"strings"

	"golang.org/x/exp/slog"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// New создаёт логгер для окружения: local цветной в stdout, dev и prod в JSON
func New(env string) *slog.Logger {
	return NewWriter(env, os.Stdout, "")
}

// NewWriter создаёт логгер с выводом в w. Непустой level заменяет уровень окружения.
func NewWriter(env string, w io.Writer, level string) *slog.Logger {
	lvl := slog.LevelInfo
	if env == envLocal || env == envDev {
		lvl = slog.LevelDebug
	}
	if level != "" {
		lvl = ParseLevel(level, lvl)
	}

	if env == envLocal {
		return slog.New(newPrettyHandler(w, &slog.HandlerOptions{Level: lvl}))
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// ParseLevel разбирает уровень логирования, при неизвестном значении возвращает def
func ParseLevel(s string, def slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return def
}

func setupPrettySlog() *slog.Logger {
	return slog.New(newPrettyHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
