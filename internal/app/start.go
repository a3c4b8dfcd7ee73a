package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/uber/nanoscope/internal/device"
	"github.com/uber/nanoscope/internal/version"
)

const (
	// propTraceRequest is the property the ROM watches for trace
	// requests, set to "<package>:<output file>".
	propTraceRequest = "dev.nanoscope"

	// deviceTraceDir is where the ROM writes finished traces.
	deviceTraceDir = "/data/local/tmp"
)

// Start runs a capture session: identify the foreground app, ask the
// ROM to trace it, block on waitForStop (normally until the user hits
// enter), then collect the trace plus any sampled-timer and
// state-transition files and render the report. Returns the report
// path.
func (a *App) Start(ctx context.Context, waitForStop func()) (string, error) {
	romVersion, err := a.shell.GetProp(ctx, version.PropVersion)
	if err != nil {
		return "", err
	}
	if err := version.Check(romVersion); err != nil {
		return "", err
	}

	pkg, err := a.shell.ForegroundPackage(ctx)
	if err != nil {
		return "", err
	}

	remoteTrace := fmt.Sprintf("%s/%s.trace", deviceTraceDir, pkg)
	if err := a.shell.SetProp(ctx, propTraceRequest, pkg+":"+remoteTrace); err != nil {
		return "", err
	}
	a.logger.Info("Tracing started",
		zap.String("package", pkg),
		zap.String("rom_version", romVersion))

	waitForStop()

	if err := a.shell.SetProp(ctx, propTraceRequest, ""); err != nil {
		return "", err
	}

	// The ROM flushes the trace and then creates the done flag; the
	// flush can take a while for long sessions.
	poller := device.NewPoller(a.shell, a.cfg.PollInterval, a.cfg.PollTimeout, a.logger)
	if err := poller.Wait(ctx, remoteTrace+".done"); err != nil {
		return "", err
	}

	workDir, err := os.MkdirTemp("", "nanoscope-session-")
	if err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	localTrace := filepath.Join(workDir, "out.trace")
	if err := a.shell.Pull(ctx, remoteTrace, localTrace); err != nil {
		return "", err
	}

	timer, err := a.pullOptional(ctx, remoteTrace+".timer")
	if err != nil {
		return "", err
	}
	state, err := a.pullOptional(ctx, remoteTrace+".state")
	if err != nil {
		return "", err
	}

	in, err := os.Open(localTrace)
	if err != nil {
		return "", fmt.Errorf("failed to open pulled trace: %w", err)
	}
	defer in.Close()

	return a.render(in, timer, state)
}

// pullOptional reads an auxiliary file from the device if it exists.
// A missing file is not an error; it returns a nil reader and the
// corresponding report section is omitted.
func (a *App) pullOptional(ctx context.Context, remotePath string) (io.Reader, error) {
	exists, err := a.shell.FileExists(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		a.logger.Debug("Auxiliary file absent", zap.String("path", remotePath))
		return nil, nil
	}
	data, err := a.shell.ReadFile(ctx, remotePath)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}
