package app

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/uber/nanoscope/internal/report"
	"github.com/uber/nanoscope/internal/trace"
)

// Open converts a local trace file (native or Chrome Trace Event
// Format) and renders it into an HTML report. Returns the report path.
func (a *App) Open(tracePath string) (string, error) {
	in, err := os.Open(tracePath)
	if err != nil {
		return "", fmt.Errorf("failed to open trace: %w", err)
	}
	defer in.Close()

	return a.render(in, nil, nil)
}

// render converts the trace stream into the native timeline and
// assembles the report around it, with optional sampled-timer and
// state-transition payloads. All intermediate artifacts are temporary
// files owned by this invocation.
func (a *App) render(traceSrc, timer, state io.Reader) (string, error) {
	timeline, err := os.CreateTemp("", "nanoscope-*.trace")
	if err != nil {
		return "", fmt.Errorf("failed to create timeline file: %w", err)
	}
	defer os.Remove(timeline.Name())
	defer timeline.Close()

	if err := trace.Import(timeline, traceSrc, a.logger); err != nil {
		return "", err
	}
	if _, err := timeline.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind timeline: %w", err)
	}

	out, err := os.CreateTemp("", "nanoscope-*.html")
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer out.Close()

	if err := report.WriteReport(out, timeline, timer, state); err != nil {
		os.Remove(out.Name())
		return "", err
	}

	a.logger.Info("Report written", zap.String("path", out.Name()))
	return out.Name(), nil
}
