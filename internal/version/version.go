// Package version knows which ROM builds this client can drive.
package version

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

// Client is the client release version.
const Client = "0.4.1"

// PropVersion is the device property carrying the ROM build version.
// A device without it is not running a Nanoscope ROM.
const PropVersion = "ro.nanoscope.version"

// supportedROM is the range of ROM builds this client speaks the
// tracing property protocol with.
const supportedROM = ">= 0.2.0, < 0.5.0"

var romConstraint = goversion.MustConstraints(goversion.NewConstraint(supportedROM))

// Check reports whether the ROM version read from the device is one
// this client supports. The returned error carries the user-facing
// explanation.
func Check(romVersion string) error {
	if romVersion == "" {
		return fmt.Errorf("device is not running a Nanoscope ROM (property %s is unset); run `nanoscope flash` first", PropVersion)
	}
	v, err := goversion.NewVersion(romVersion)
	if err != nil {
		return fmt.Errorf("unparseable ROM version %q: %w", romVersion, err)
	}
	if !romConstraint.Check(v) {
		return fmt.Errorf("ROM version %s is outside the supported range %q; update the ROM with `nanoscope flash` or install a newer client", romVersion, supportedROM)
	}
	return nil
}
