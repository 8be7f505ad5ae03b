package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/loganszeto/udpkv/internal/config"
)

// New builds the process logger. The console core always writes to out.
// When cfg.File is set, <file>.info.log and <file>.error.log rotate next to it.
func New(cfg config.LogConfig, out io.Writer) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	if out == nil {
		out = os.Stdout
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(encCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(out)), level),
	}
	if cfg.File != "" {
		cores = append(cores,
			zapcore.NewCore(encoder, zapcore.AddSync(rotating(cfg, ".info.log")), atLeast(level, zapcore.InfoLevel)),
			zapcore.NewCore(encoder, zapcore.AddSync(rotating(cfg, ".error.log")), zapcore.ErrorLevel),
		)
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

func rotating(cfg config.LogConfig, suffix string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   cfg.File + suffix,
		MaxSize:    cfg.MaxSize, // megabytes
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge, // days
		Compress:   cfg.Compress,
	}
}

func atLeast(a, b zapcore.Level) zapcore.Level {
	if a > b {
		return a
	}
	return b
}
