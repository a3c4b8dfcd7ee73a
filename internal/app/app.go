// Package app sequences the toolchain flows: converting and rendering
// traces, driving a capture session on a device, and flashing a ROM.
package app

import (
	"go.uber.org/zap"

	"github.com/uber/nanoscope/internal/config"
	"github.com/uber/nanoscope/internal/device"
)

// App wires the toolchain components for one CLI invocation.
type App struct {
	cfg    *config.Config
	shell  device.Shell
	logger *zap.Logger
}

// New creates an App over the given shell.
func New(cfg *config.Config, shell device.Shell, logger *zap.Logger) *App {
	return &App{cfg: cfg, shell: shell, logger: logger}
}
