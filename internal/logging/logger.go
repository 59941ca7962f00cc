// Package logging builds the engine's structured logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Engine log levels (spec §6). These map onto zap's levels rather than
// reusing zap's names directly, since "Minimal" has no zap equivalent.
const (
	LevelMinimal = "Minimal"
	LevelInfo    = "Info"
	LevelVerbose = "Verbose"
)

// New builds a *zap.Logger for the given engine log level, following the
// production/development split the teacher's main() used (zap.NewProduction
// vs zap.NewDevelopment): Verbose gets human-readable console output at
// debug level, Minimal and Info get JSON output at warn/info level
// respectively.
func New(level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch level {
	case LevelVerbose:
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case LevelMinimal:
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case LevelInfo, "":
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	default:
		return nil, fmt.Errorf("logging: unknown level %q", level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}
