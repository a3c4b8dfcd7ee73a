// Package device abstracts the communication channel to an Android
// device. The rest of the toolchain depends only on the Shell
// capability set, never on a concrete transport.
package device

import "context"

// Shell is the capability set the toolchain needs from a device.
type Shell interface {
	// ReadFile returns the contents of a file on the device.
	ReadFile(ctx context.Context, remotePath string) ([]byte, error)

	// Pull copies a file from the device to a local path.
	Pull(ctx context.Context, remotePath, localPath string) error

	// FileExists reports whether a file exists on the device.
	FileExists(ctx context.Context, remotePath string) (bool, error)

	// GetProp reads a named system property.
	GetProp(ctx context.Context, name string) (string, error)

	// SetProp writes a named system property.
	SetProp(ctx context.Context, name, value string) error

	// ForegroundPackage identifies the package of the application
	// currently in the foreground.
	ForegroundPackage(ctx context.Context) (string, error)
}
