// Package httplog builds the process zap logger: a production JSON
// encoder, ISO8601 timestamps, and an optional lumberjack-rotated file
// sink alongside stdout. Grounded on the teacher's zap/lumberjack
// dependency pairing (go.uber.org/zap + gopkg.in/natefinch/lumberjack.v2
// in its go.mod); no concrete construction file survived retrieval, so
// this follows the documented idiomatic pairing of those two libraries.
// Constructed once in cmd/tipline and threaded through constructors,
// per spec §9's redesign note against module-level logger singletons.
package httplog

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level and optional file rotation.
type Config struct {
	Level string // "debug", "info", "warn", "error"

	// FilePath, if set, adds a rotated file sink alongside stdout.
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func (c Config) level() zapcore.Level {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

// New builds a production-style *zap.Logger per cfg.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	level := cfg.level()
	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level),
	}
	if cfg.FilePath != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 28),
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(rotator), level))
	}

	core := zapcore.NewTee(cores...)
	return zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)), nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
