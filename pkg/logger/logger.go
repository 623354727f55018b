package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Init initializes the global slog logger.
func Init(writer io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(newHandler(writer, level)))
}

// InitWithFile initializes the global logger so records go to writer and are
// appended to logFile as well. The returned function closes the file.
func InitWithFile(writer io.Writer, level slog.Level, logFile string) (func() error, error) {
	if logFile == "" {
		Init(writer, level)
		return func() error { return nil }, nil
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		Init(writer, level)
		return func() error { return nil }, fmt.Errorf("open log file: %w", err)
	}
	slog.SetDefault(slog.New(slogmulti.Fanout(newHandler(writer, level), newHandler(file, level))))
	return file.Close, nil
}

func newHandler(writer io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(writer, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize attribute keys for consistency if needed
			if a.Key == slog.TimeKey {
				a.Key = "timestamp"
			}
			if a.Key == slog.LevelKey {
				a.Key = "level"
			}
			if a.Key == slog.MessageKey {
				a.Key = "message"
			}
			return a
		},
	})
}

// Browser builds the printf-style logger handed to headless Chrome, which
// is chatty at debug level.
func Browser(level slog.Level) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(zapLevel(level))
	cfg.Sampling = nil

	l, err := cfg.Build(zap.Fields(zap.String("component", "browser")))
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

func zapLevel(level slog.Level) zapcore.Level {
	switch {
	case level < slog.LevelInfo:
		return zapcore.DebugLevel
	case level < slog.LevelWarn:
		return zapcore.InfoLevel
	case level < slog.LevelError:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
