// Package logger builds the zap logger shared by the server, the workers
// and the queue consumer.
package logger

import (
    "fmt"
    "strings"

    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
)

// New returns a JSON production logger, or a console logger with colour
// levels when dev is true.  level accepts debug, info, warn and error.
func New(level string, dev bool) (*zap.Logger, error) {
    lvl, err := parseLevel(level)
    if err != nil {
        return nil, err
    }
    var cfg zap.Config
    if dev {
        cfg = zap.NewDevelopmentConfig()
        cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
    } else {
        cfg = zap.NewProductionConfig()
        cfg.EncoderConfig.TimeKey = "ts"
        cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
    }
    cfg.Level = zap.NewAtomicLevelAt(lvl)
    return cfg.Build()
}

// Nop is used by tests and by components constructed without a logger.
func Nop() *zap.Logger { return zap.NewNop() }

func parseLevel(s string) (zapcore.Level, error) {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "", "info":
        return zapcore.InfoLevel, nil
    case "debug":
        return zapcore.DebugLevel, nil
    case "warn", "warning":
        return zapcore.WarnLevel, nil
    case "error":
        return zapcore.ErrorLevel, nil
    }
    return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
}
