package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// phaseComplete is the Trace Event Format phase code for a complete
// event: a record describing a span by its start time and duration,
// rather than by separate begin/end records.
const phaseComplete = "X"

// chromeRecord mirrors the subset of Trace Event Format fields the
// importer honors. Timestamps and durations arrive as string-encoded
// microsecond counts.
type chromeRecord struct {
	Name  string `json:"name"`
	Phase string `json:"ph"`
	Ts    string `json:"ts"`
	Dur   string `json:"dur"`
}

// ParseChrome reads a Chrome Trace Event Format stream, one JSON object
// per content line, and returns the span boundary events in canonical
// order. Records whose phase is not a complete event are discarded;
// lines that are only array brackets or empty-object padding are
// skipped. Any record that fails to parse aborts the whole import.
func ParseChrome(r io.Reader) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimSuffix(line, ",")
		if line == "" || isStructural(line) {
			continue
		}

		var rec chromeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("failed to parse trace record %q: %w", line, err)
		}

		if rec.Phase != phaseComplete {
			continue
		}

		startUs, err := strconv.ParseFloat(rec.Ts, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q in record %q: %w", rec.Ts, rec.Name, err)
		}
		if rec.Dur == "" {
			return nil, fmt.Errorf("complete event %q is missing a duration", rec.Name)
		}
		durUs, err := strconv.ParseFloat(rec.Dur, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q in record %q: %w", rec.Dur, rec.Name, err)
		}

		// Microseconds to nanoseconds. The duration is recomputed from
		// the converted boundaries so both events carry the same value.
		startNs := startUs * 1000
		endNs := (startUs + durUs) * 1000
		duration := endNs - startNs

		events = append(events,
			Event{Name: rec.Name, Timestamp: startNs, IsStart: true, Duration: duration},
			Event{Name: rec.Name, Timestamp: endNs, IsStart: false, Duration: duration},
		)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trace stream: %w", err)
	}

	SortEvents(events)
	return events, nil
}

// isStructural reports whether a line is array-boundary or padding
// syntax of the foreign format rather than a record.
func isStructural(line string) bool {
	switch line {
	case "[", "]", "{}", "[]":
		return true
	}
	return false
}
