package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeShell answers FileExists true after a set number of calls.
type fakeShell struct {
	Shell
	calls     int
	appearsAt int
	existsErr error
}

func (f *fakeShell) FileExists(ctx context.Context, remotePath string) (bool, error) {
	f.calls++
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return f.calls >= f.appearsAt, nil
}

func TestPollerWaitsForFile(t *testing.T) {
	shell := &fakeShell{appearsAt: 3}
	p := NewPoller(shell, time.Millisecond, time.Second, zap.NewNop())

	err := p.Wait(context.Background(), "/data/local/tmp/out.trace.done")
	require.NoError(t, err)
	assert.Equal(t, 3, shell.calls)
	assert.Equal(t, int64(2), p.Attempts(), "two polls found the file absent")
}

func TestPollerTimesOut(t *testing.T) {
	shell := &fakeShell{appearsAt: 1 << 30}
	p := NewPoller(shell, time.Millisecond, 10*time.Millisecond, zap.NewNop())

	err := p.Wait(context.Background(), "/never")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}

func TestPollerCancelled(t *testing.T) {
	shell := &fakeShell{appearsAt: 1 << 30}
	p := NewPoller(shell, 50*time.Millisecond, time.Minute, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, "/never")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
