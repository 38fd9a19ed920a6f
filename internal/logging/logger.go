// internal/logging/logger.go
//
// Structured logging for specsmith. Logs go to a file under the state
// directory so the TUI never fights stdout; verbose mode tees to stderr
// for non-interactive commands.

package logging

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the application logger writing to logsDir/specsmith.log.
func New(logsDir string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join(logsDir, "specsmith.log")}
	cfg.ErrorOutputPaths = cfg.OutputPaths
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		cfg.OutputPaths = append(cfg.OutputPaths, "stderr")
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: build logger: %w", err)
	}
	return logger, nil
}
