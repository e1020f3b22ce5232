package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config controls how New builds the process logger.
type Config struct {
	Development       bool
	Encoding          string
	Level             string
	DisableCaller     bool
	DisableStacktrace bool
}

// New builds a zap logger from cfg. Unknown levels fall back to info and an
// empty encoding means json (console in development).
func New(cfg Config) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if cfg.Level != "" {
		if parsed, err := zapcore.ParseLevel(strings.ToLower(cfg.Level)); err == nil {
			level.SetLevel(parsed)
		}
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level
	zcfg.DisableCaller = cfg.DisableCaller
	zcfg.DisableStacktrace = cfg.DisableStacktrace
	switch {
	case cfg.Encoding != "":
		zcfg.Encoding = cfg.Encoding
	case cfg.Development:
		zcfg.Encoding = "console"
	default:
		zcfg.Encoding = "json"
	}
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zcfg.Build()
}

// Named returns a child logger tagged with component, or a no-op logger for nil.
func Named(l *zap.Logger, component string) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l.Named(component)
}
