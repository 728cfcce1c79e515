package config

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig selects the zap logger a process runs with. Format is "json" for
// the production encoder or "console" for the development one.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (l LogConfig) validate() error {
	if _, err := zap.ParseAtomicLevel(l.level()); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch l.Format {
	case "", "json", "console":
		return nil
	}
	return fmt.Errorf("log: unknown format %q", l.Format)
}

func (l LogConfig) level() string {
	if l.Level == "" {
		return "info"
	}
	return l.Level
}

// Build creates the logger.
func (l LogConfig) Build() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(l.level())
	if err != nil {
		return nil, fmt.Errorf("log: %w", err)
	}

	cfg := zap.NewProductionConfig()
	if l.Format == "console" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}
