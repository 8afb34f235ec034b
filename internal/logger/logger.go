// Package logger держит общий zerolog-логгер процесса.
package logger

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerKey struct{}

var globalLogger zerolog.Logger

func init() {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	executable := "chunkupload"
	if pname, err := os.Executable(); err == nil {
		executable = filepath.Base(pname)
	}

	zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
		return filepath.Base(file) + ":" + strconv.Itoa(line)
	}

	globalLogger = log.With().
		Str("hostname", hostname).
		Str("executable", executable).
		Caller().
		Logger().
		Level(levelFromEnv())

	log.Logger = globalLogger
}

// levelFromEnv читает LOG_LEVEL; пустое или битое значение даёт INFO.
func levelFromEnv() zerolog.Level {
	raw := os.Getenv("LOG_LEVEL")
	if raw == "" {
		return zerolog.InfoLevel
	}

	level, err := zerolog.ParseLevel(raw)
	if err != nil || level == zerolog.NoLevel {
		log.Warn().Err(err).Str("log_level", raw).Msg("invalid LOG_LEVEL, defaulting to INFO")
		return zerolog.InfoLevel
	}
	return level
}

// Ctx возвращает логгер, привязанный к контексту запроса, либо глобальный.
func Ctx(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return &globalLogger
}

// WithLogger кладёт логгер в контекст.
func WithLogger(ctx context.Context, l *zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// Global возвращает копию глобального логгера, например для дочерних логгеров запроса.
func Global() zerolog.Logger {
	return globalLogger
}

// SetLevel updates the global log level
func SetLevel(level zerolog.Level) {
	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

// SetLevelString разбирает уровень из конфигурации; пустая строка ничего не меняет.
func SetLevelString(raw string) error {
	if raw == "" {
		return nil
	}
	level, err := zerolog.ParseLevel(raw)
	if err != nil {
		return err
	}
	SetLevel(level)
	return nil
}

func Fatal() *zerolog.Event {
	return globalLogger.Fatal()
}

func Error() *zerolog.Event {
	return globalLogger.Error()
}

func Warn() *zerolog.Event {
	return globalLogger.Warn()
}

func Info() *zerolog.Event {
	return globalLogger.Info()
}

func Debug() *zerolog.Event {
	return globalLogger.Debug()
}
