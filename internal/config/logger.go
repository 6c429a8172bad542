package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process logger.  Production JSON output is used
// everywhere; "dev" switches to the console encoder.  level overrides the
// default (debug in dev, info elsewhere).
func NewLogger(env, level string) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if env == "dev" {
		zc = zap.NewDevelopmentConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("LOG_LEVEL: %w", err)
		}
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zc.Build()
}
