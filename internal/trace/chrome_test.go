package trace

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseChromeCompleteEvent(t *testing.T) {
	input := `[
{"name":"doWork","ph":"X","ts":"1000","dur":"500"},
{}
]`

	events, err := ParseChrome(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2, "one complete event should yield a start and an end")

	start, end := events[0], events[1]
	assert.Equal(t, "doWork", start.Name)
	assert.True(t, start.IsStart)
	assert.Equal(t, 1_000_000.0, start.Timestamp, "start should be converted to nanoseconds")
	assert.Equal(t, 500_000.0, start.Duration)

	assert.False(t, end.IsStart)
	assert.Equal(t, 1_500_000.0, end.Timestamp, "end should be start plus duration in nanoseconds")
	assert.Equal(t, 500_000.0, end.Duration, "both boundaries carry the span duration")
}

func TestParseChromeDiscardsOtherPhases(t *testing.T) {
	input := `[
{"name":"begin","ph":"B","ts":"1000"},
{"name":"meta","ph":"M","ts":"0"},
{"name":"kept","ph":"X","ts":"2000","dur":"100"},
]`

	events, err := ParseChrome(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "kept", events[0].Name, "only complete events are honored")
}

func TestParseChromeSkipsStructuralLines(t *testing.T) {
	input := "[\n{},\n{}\n]"

	events, err := ParseChrome(strings.NewReader(input))
	require.NoError(t, err)
	assert.Empty(t, events, "bracket and padding lines are not records")
}

func TestParseChromeMalformedRecordIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bad json", `{"name":"x","ph":"X","ts":`},
		{"bad timestamp", `{"name":"x","ph":"X","ts":"abc","dur":"1"}`},
		{"bad duration", `{"name":"x","ph":"X","ts":"1","dur":"abc"}`},
		{"missing duration", `{"name":"x","ph":"X","ts":"1"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseChrome(strings.NewReader("[\n" + tt.input + "\n]"))
			assert.Error(t, err, "a record that fails to parse must abort the import")
		})
	}
}

func TestParseChromeSortsCoincidentEvents(t *testing.T) {
	// Two spans: outer covers 1000..3000, inner ends exactly where a
	// sibling starts.
	input := `[
{"name":"sibling","ph":"X","ts":"2000","dur":"1000"},
{"name":"outer","ph":"X","ts":"1000","dur":"2000"},
{"name":"inner","ph":"X","ts":"1000","dur":"1000"},
]`

	events, err := ParseChrome(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 6)

	var order []string
	for _, e := range events {
		if e.IsStart {
			order = append(order, "+"+e.Name)
		} else {
			order = append(order, "-"+e.Name)
		}
	}
	assert.Equal(t,
		[]string{"+outer", "+inner", "-inner", "+sibling", "-sibling", "-outer"},
		order, "coincident boundaries must respect the nesting order")
}

func TestImportIdempotent(t *testing.T) {
	input := `[
{"name":"a","ph":"X","ts":"1000","dur":"500"},
{"name":"b","ph":"X","ts":"1100","dur":"100"},
]`

	var first, second bytes.Buffer
	require.NoError(t, Import(&first, strings.NewReader(input), zap.NewNop()))
	require.NoError(t, Import(&second, strings.NewReader(input), zap.NewNop()))

	assert.Equal(t, first.String(), second.String(),
		"re-running the importer on the same input must be byte-identical")
}
