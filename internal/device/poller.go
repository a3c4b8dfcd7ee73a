package device

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Poller waits for a file to appear on the device, checking at a fixed
// interval up to a deadline.
type Poller struct {
	shell    Shell
	interval time.Duration
	timeout  time.Duration
	attempts *atomic.Int64
	logger   *zap.Logger
}

// NewPoller creates a poller over the given shell.
func NewPoller(shell Shell, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		shell:    shell,
		interval: interval,
		timeout:  timeout,
		attempts: atomic.NewInt64(0),
		logger:   logger,
	}
}

// Wait blocks until remotePath exists on the device, the timeout
// elapses, or the context is cancelled.
func (p *Poller) Wait(ctx context.Context, remotePath string) error {
	deadline := time.Now().Add(p.timeout)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		exists, err := p.shell.FileExists(ctx, remotePath)
		if err != nil {
			return fmt.Errorf("failed to poll for %s: %w", remotePath, err)
		}
		if exists {
			p.logger.Debug("Remote file ready",
				zap.String("path", remotePath),
				zap.Int64("attempts", p.attempts.Load()))
			return nil
		}
		p.attempts.Inc()

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out after %s waiting for %s", p.timeout, remotePath)
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("wait for %s cancelled: %w", remotePath, ctx.Err())
		}
	}
}

// Attempts returns how many polls found the file absent.
func (p *Poller) Attempts() int64 {
	return p.attempts.Load()
}
