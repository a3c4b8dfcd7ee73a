package trace

import "sort"

// Event is one boundary of a traced method span. A span is represented
// by two events: a start and an end, associated only by their position
// in the canonically ordered sequence. Duration is carried on both
// boundaries because each is ordered independently and needs it to
// break ties at coincident instants.
type Event struct {
	// Name is the label of the traced unit. Opaque, not unique.
	Name string

	// Timestamp is the instant of the boundary in nanoseconds,
	// monotonic within one trace.
	Timestamp float64

	// IsStart marks the opening boundary of a span; false marks the
	// closing boundary.
	IsStart bool

	// Duration is the full span length (end minus start) in
	// nanoseconds, identical on the start and the matching end.
	Duration float64
}

// Less reports whether e sorts before other in the canonical event
// order:
//   - ascending timestamp
//   - at equal instants, an end sorts before a start (a span closing
//     and another opening at the same instant must close first)
//   - two starts at the same instant: the longer span opens first
//   - two ends at the same instant: the shorter span closes first
//
// Sorting a set of well-formed start/end pairs by this order yields a
// valid nested bracket sequence: at every prefix the number of starts
// seen is at least the number of ends seen.
func (e Event) Less(other Event) bool {
	if e.Timestamp != other.Timestamp {
		return e.Timestamp < other.Timestamp
	}
	if e.IsStart != other.IsStart {
		return !e.IsStart
	}
	if e.IsStart {
		return e.Duration > other.Duration
	}
	return e.Duration < other.Duration
}

// SortEvents orders events canonically in place. The sort is stable
// over a plain slice: events that compare equal keep their input order
// and field-identical events are preserved, not collapsed.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Less(events[j])
	})
}
