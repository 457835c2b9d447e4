// Package logger wraps zap behind package-level functions so the rest of
// the codebase never touches a logger instance. Output goes to a rotating
// file; console mirroring is optional because the mixer TUI owns the
// terminal while playing.
package logger

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	global *zap.Logger
	once   sync.Once
)

type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config controls where log output goes and how much of it there is.
type Config struct {
	Level      Level
	FilePath   string // rotating JSON file; empty disables the file sink
	Console    bool   // mirror to stderr; keep false while the TUI runs
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Init builds the global logger. Only the first call has any effect.
func Init(cfg Config) {
	once.Do(func() {
		var level zapcore.Level
		switch cfg.Level {
		case DebugLevel:
			level = zapcore.DebugLevel
		case WarnLevel:
			level = zapcore.WarnLevel
		case ErrorLevel:
			level = zapcore.ErrorLevel
		default:
			level = zapcore.InfoLevel
		}

		encCfg := zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.RFC3339TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		}

		var cores []zapcore.Core
		if cfg.FilePath != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err == nil {
				w := zapcore.AddSync(&lumberjack.Logger{
					Filename:   cfg.FilePath,
					MaxSize:    cfg.MaxSizeMB,
					MaxBackups: cfg.MaxBackups,
					MaxAge:     cfg.MaxAgeDays,
				})
				cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), w, level))
			}
		}
		if cfg.Console || len(cores) == 0 {
			cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(os.Stderr), level))
		}

		global = zap.New(zapcore.NewTee(cores...),
			zap.AddCaller(),
			zap.AddCallerSkip(1),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	})
}

// Sync flushes buffered entries. Safe to call on every exit path.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}

func Debug(msg string, fields ...zap.Field) {
	if global != nil {
		global.Debug(msg, fields...)
	}
}

func Info(msg string, fields ...zap.Field) {
	if global != nil {
		global.Info(msg, fields...)
	}
}

func Warn(msg string, fields ...zap.Field) {
	if global != nil {
		global.Warn(msg, fields...)
	}
}

func Error(msg string, fields ...zap.Field) {
	if global != nil {
		global.Error(msg, fields...)
	}
}

func Fatal(msg string, fields ...zap.Field) {
	if global != nil {
		global.Fatal(msg, fields...)
	}
}

// Field helpers so callers import only this package.

func String(key, val string) zap.Field { return zap.String(key, val) }

func Int(key string, val int) zap.Field { return zap.Int(key, val) }

func Float64(key string, val float64) zap.Field { return zap.Float64(key, val) }

func Bool(key string, val bool) zap.Field { return zap.Bool(key, val) }

func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }

func ErrorField(err error) zap.Field { return zap.Error(err) }

func Any(key string, val any) zap.Field { return zap.Any(key, val) }
