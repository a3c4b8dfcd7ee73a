package trace

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// WriteTimeline serializes an already-ordered event sequence into the
// native line format: `<offset>:+<name>` for a start, `<offset>:POP`
// for an end. Offsets are nanoseconds relative to the first event,
// truncated to integers, so the first line is always at offset 0. The
// sequence is written in input order with line-buffered appends; no
// re-sorting happens here.
//
// The nested bracket invariant is validated while writing: a pop with
// no open push fails the write. Pushes still open at end of input only
// produce a warning, since a capture stopped mid-flight legitimately
// ends with open spans.
func WriteTimeline(w io.Writer, events []Event, logger *zap.Logger) error {
	if len(events) == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	first := events[0].Timestamp
	depth := 0

	for _, e := range events {
		offset := int64(e.Timestamp - first)
		if e.IsStart {
			depth++
			if _, err := fmt.Fprintf(bw, "%d:+%s\n", offset, e.Name); err != nil {
				return fmt.Errorf("failed to write push line: %w", err)
			}
			continue
		}
		if depth == 0 {
			return fmt.Errorf("malformed trace: pop at offset %d with no open span", offset)
		}
		depth--
		if _, err := fmt.Fprintf(bw, "%d:POP\n", offset); err != nil {
			return fmt.Errorf("failed to write pop line: %w", err)
		}
	}

	if depth > 0 {
		logger.Warn("Trace ended with open spans",
			zap.Int("open_spans", depth))
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush timeline: %w", err)
	}
	return nil
}

// Import converts src into the native timeline format on dst. An input
// whose first byte is '[' is treated as a Chrome Trace Event Format
// stream and run through the importer; anything else is assumed to be
// native already and copied through unmodified.
func Import(dst io.Writer, src io.Reader, logger *zap.Logger) error {
	br := bufio.NewReader(src)

	head, err := br.Peek(1)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read trace input: %w", err)
	}

	if head[0] == '[' {
		events, err := ParseChrome(br)
		if err != nil {
			return fmt.Errorf("failed to import trace: %w", err)
		}
		logger.Debug("Imported foreign trace",
			zap.Int("events", len(events)))
		return WriteTimeline(dst, events, logger)
	}

	if _, err := io.Copy(dst, br); err != nil {
		return fmt.Errorf("failed to copy native trace: %w", err)
	}
	return nil
}
