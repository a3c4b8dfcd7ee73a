package report

import (
	"bytes"
	_ "embed"
	"io"
)

// viewerHTML is the self-contained visualization page. The placeholder
// tokens inside it are replaced by Assemble; the optional payloads sit
// inside array literals so an omitted region still leaves valid script.
//
//go:embed assets/viewer.html
var viewerHTML []byte

// WriteReport assembles the embedded viewer template with the given
// payload streams into dst.
func WriteReport(dst io.Writer, timeline, timer, state io.Reader) error {
	return Assemble(dst, bytes.NewReader(viewerHTML), timeline, timer, state)
}
