package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger with ISO8601 timestamps writing to outputs, stderr when none are given.
// Unknown levels fall back to info and unknown encodings to json.
func New(level, encoding string, outputs ...string) (*zap.Logger, error) {
	atomic := zap.NewAtomicLevel()
	if level == "" {
		level = "info"
	}
	if err := atomic.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level '%s', using 'info'. Error: %v\n", level, err)
		atomic.SetLevel(zap.InfoLevel)
	}

	encoding = strings.ToLower(encoding)
	if encoding != "console" && encoding != "json" {
		encoding = "json"
	}

	config := zap.NewProductionConfig()
	config.Level = atomic
	config.Encoding = encoding
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if encoding == "console" && len(outputs) == 0 {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if len(outputs) > 0 {
		config.OutputPaths = outputs
		config.ErrorOutputPaths = outputs
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
