package device

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

// runner executes an external command and returns its stdout. It is a
// seam so tests can intercept adb invocations.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ADB implements Shell by driving the adb binary.
type ADB struct {
	path   string
	serial string
	run    runner
	logger *zap.Logger
}

var _ Shell = (*ADB)(nil)

// NewADB creates a Shell backed by the adb binary at path. An empty
// path falls back to "adb" on PATH; an empty serial targets the only
// connected device.
func NewADB(path, serial string, logger *zap.Logger) *ADB {
	if path == "" {
		path = "adb"
	}
	return &ADB{
		path:   path,
		serial: serial,
		run:    runCommand,
		logger: logger,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w: %s",
			name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// args prefixes the device serial selector when one is configured.
func (a *ADB) args(sub ...string) []string {
	if a.serial != "" {
		return append([]string{"-s", a.serial}, sub...)
	}
	return sub
}

// shell runs a command on the device and returns its trimmed output.
func (a *ADB) shell(ctx context.Context, parts ...string) (string, error) {
	out, err := a.run(ctx, a.path, a.args(append([]string{"shell"}, parts...)...)...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ReadFile returns the raw contents of a file on the device.
func (a *ADB) ReadFile(ctx context.Context, remotePath string) ([]byte, error) {
	out, err := a.run(ctx, a.path, a.args("shell", "cat", remotePath)...)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", remotePath, err)
	}
	return out, nil
}

// Pull copies a file from the device to a local path.
func (a *ADB) Pull(ctx context.Context, remotePath, localPath string) error {
	if _, err := a.run(ctx, a.path, a.args("pull", remotePath, localPath)...); err != nil {
		return fmt.Errorf("failed to pull %s: %w", remotePath, err)
	}
	a.logger.Debug("Pulled file from device",
		zap.String("remote", remotePath),
		zap.String("local", localPath))
	return nil
}

// FileExists reports whether a file exists on the device. The probe
// always exits zero so a missing file is not confused with a transport
// failure.
func (a *ADB) FileExists(ctx context.Context, remotePath string) (bool, error) {
	out, err := a.shell(ctx, "sh", "-c",
		fmt.Sprintf("test -e %s && echo 1 || echo 0", remotePath))
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", remotePath, err)
	}
	return out == "1", nil
}

// GetProp reads a named system property.
func (a *ADB) GetProp(ctx context.Context, name string) (string, error) {
	out, err := a.shell(ctx, "getprop", name)
	if err != nil {
		return "", fmt.Errorf("failed to get property %s: %w", name, err)
	}
	return out, nil
}

// SetProp writes a named system property.
func (a *ADB) SetProp(ctx context.Context, name, value string) error {
	if value == "" {
		value = `""`
	}
	if _, err := a.shell(ctx, "setprop", name, value); err != nil {
		return fmt.Errorf("failed to set property %s: %w", name, err)
	}
	return nil
}

var resumedActivityPattern = regexp.MustCompile(`mResumedActivity.*?\s([A-Za-z0-9_.]+)/`)

// ForegroundPackage identifies the package currently in the foreground
// by parsing the resumed activity out of the activity manager dump.
func (a *ADB) ForegroundPackage(ctx context.Context) (string, error) {
	out, err := a.shell(ctx, "dumpsys", "activity", "activities")
	if err != nil {
		return "", fmt.Errorf("failed to query foreground activity: %w", err)
	}
	m := resumedActivityPattern.FindStringSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("no resumed activity found in activity dump")
	}
	return m[1], nil
}
