package device

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRunner records invocations and plays back canned output.
type fakeRunner struct {
	calls  [][]string
	output []byte
	err    error
}

func (f *fakeRunner) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.output, f.err
}

func newTestADB(serial string, out string, err error) (*ADB, *fakeRunner) {
	f := &fakeRunner{output: []byte(out), err: err}
	a := NewADB("adb", serial, zap.NewNop())
	a.run = f.run
	return a, f
}

func TestADBGetPropTrimsOutput(t *testing.T) {
	a, f := newTestADB("", "0.3.1\n", nil)

	v, err := a.GetProp(context.Background(), "ro.nanoscope.version")
	require.NoError(t, err)
	assert.Equal(t, "0.3.1", v)
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"adb", "shell", "getprop", "ro.nanoscope.version"}, f.calls[0])
}

func TestADBSerialSelector(t *testing.T) {
	a, f := newTestADB("emulator-5554", "", nil)

	require.NoError(t, a.SetProp(context.Background(), "dev.nanoscope", "pkg:/t.trace"))
	require.Len(t, f.calls, 1)
	assert.Equal(t,
		[]string{"adb", "-s", "emulator-5554", "shell", "setprop", "dev.nanoscope", "pkg:/t.trace"},
		f.calls[0], "the serial selector must precede the subcommand")
}

func TestADBSetPropEmptyValueQuoted(t *testing.T) {
	a, f := newTestADB("", "", nil)

	require.NoError(t, a.SetProp(context.Background(), "dev.nanoscope", ""))
	require.Len(t, f.calls, 1)
	assert.Equal(t, `""`, f.calls[0][len(f.calls[0])-1],
		"clearing a property needs an explicit empty argument")
}

func TestADBFileExists(t *testing.T) {
	a, _ := newTestADB("", "1\n", nil)
	exists, err := a.FileExists(context.Background(), "/data/local/tmp/x.trace")
	require.NoError(t, err)
	assert.True(t, exists)

	a, _ = newTestADB("", "0\n", nil)
	exists, err = a.FileExists(context.Background(), "/data/local/tmp/x.trace")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestADBFileExistsTransportFailure(t *testing.T) {
	a, _ := newTestADB("", "", fmt.Errorf("device offline"))
	_, err := a.FileExists(context.Background(), "/x")
	assert.Error(t, err, "a transport failure is not a missing file")
}

func TestADBPullArgs(t *testing.T) {
	a, f := newTestADB("", "", nil)
	require.NoError(t, a.Pull(context.Background(), "/remote/a.trace", "/local/a.trace"))
	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"adb", "pull", "/remote/a.trace", "/local/a.trace"}, f.calls[0])
}

func TestADBForegroundPackage(t *testing.T) {
	dump := `  mResumedActivity: ActivityRecord{1234 u0 com.example.app/.MainActivity t42}`
	a, _ := newTestADB("", dump, nil)

	pkg, err := a.ForegroundPackage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "com.example.app", pkg)
}

func TestADBForegroundPackageNotFound(t *testing.T) {
	a, _ := newTestADB("", "nothing resumed here", nil)
	_, err := a.ForegroundPackage(context.Background())
	assert.Error(t, err)
}
