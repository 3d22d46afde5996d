package deck

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Lightning Bolt", "Lightning Bolt"},
		{"  Lightning   Bolt ", "Lightning Bolt"},
		{"Lightning\tBolt\n", "Lightning Bolt"},
		{"lightning bolt", "lightning bolt"},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func TestCounted_ExcludesSideboardAndAggregates(t *testing.T) {
	d := Deck{
		ID: "d1",
		Partitions: []Partition{
			{Name: "Main", Cards: []CardCount{{"Lightning Bolt", 4}, {"Mountain", 18}}},
			{Name: "Commander", Cards: []CardCount{{" Lightning  Bolt", 1}}},
			{Name: "sideboard", Cards: []CardCount{{"Smash to Smithereens", 3}}},
		},
	}
	got := d.Counted([]string{"Sideboard"})
	assert.Equal(t, map[string]int{"Lightning Bolt": 5, "Mountain": 18}, got)
}

func TestCounted_FlatCards(t *testing.T) {
	d := Deck{Cards: []CardCount{{"Shock", 2}, {"", 3}, {"Mountain", 0}}}
	assert.Equal(t, map[string]int{"Shock": 2}, d.Counted(nil))
	assert.Equal(t, []string{"Shock"}, SortedNames(d.Counted(nil)))
}

func TestReader_MixedLines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"d1","game":"Magic","partitions":[{"name":"Main","cards":[{"name":"Lightning Bolt","count":4}]}]}`,
		``,
		`{not json`,
		`{"id":"d3","cards":[{"name":"","count":1}]}`,
		`{"id":"d4","cards":[{"name":"Shock","count":-1}]}`,
		`{"id":" d5 ","game":"pokemon","cards":[{"name":"Pikachu","count":2}]}`,
	}, "\n")

	var recs []Record
	require.NoError(t, ReadAll(strings.NewReader(input), func(r Record) error {
		recs = append(recs, r)
		return nil
	}))
	require.Len(t, recs, 5)

	assert.NoError(t, recs[0].Err)
	assert.Equal(t, "magic", recs[0].Deck.Game)
	assert.Equal(t, 1, recs[0].Line)

	assert.Equal(t, 3, recs[1].Line)
	assert.Equal(t, ReasonMalformed, ReasonOf(recs[1].Err))
	assert.Equal(t, ReasonInvalid, ReasonOf(recs[2].Err))
	assert.Equal(t, ReasonInvalid, ReasonOf(recs[3].Err))

	assert.NoError(t, recs[4].Err)
	assert.Equal(t, "d5", recs[4].Deck.ID)
}

func TestReader_LineTooLongIsSkipped(t *testing.T) {
	good := `{"id":"ok","cards":[{"name":"Shock","count":4}]}`
	input := strings.Join([]string{
		good,
		`{"id":"big","pad":"` + strings.Repeat("x", 200_000) + `"}`,
		good,
		strings.Repeat("y", 300),
	}, "\n")

	var recs []Record
	require.NoError(t, NewReaderSize(strings.NewReader(input), 128).ForEach(func(r Record) error {
		recs = append(recs, r)
		return nil
	}))
	require.Len(t, recs, 4)

	assert.NoError(t, recs[0].Err)
	assert.Equal(t, ReasonTooLong, ReasonOf(recs[1].Err))
	assert.Equal(t, 2, recs[1].Line)
	assert.NoError(t, recs[2].Err)
	assert.Equal(t, "ok", recs[2].Deck.ID)
	assert.Equal(t, 3, recs[2].Line)
	assert.Equal(t, ReasonTooLong, ReasonOf(recs[3].Err))
}

func TestReader_LastLineWithoutNewline(t *testing.T) {
	rd := NewReader(strings.NewReader("\n" + `{"id":"tail","cards":[{"name":"Shock","count":1}]}`))
	rec, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, rec.Line)
	assert.Equal(t, "tail", rec.Deck.ID)

	_, err = rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_EOF(t *testing.T) {
	rd := NewReader(strings.NewReader("\n\n"))
	_, err := rd.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReadAll_StopsOnCallbackError(t *testing.T) {
	stop := errors.New("stop")
	n := 0
	err := ReadAll(strings.NewReader("{}\n{}\n{}\n"), func(Record) error {
		n++
		if n == 2 {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 2, n)
}

func TestReport(t *testing.T) {
	r := NewReport()
	require.NotEmpty(t, r.RunID)

	r.Add(1, Ingested, nil)
	r.Add(2, Duplicate, nil)
	r.Add(3, Skipped, &RecordError{Reason: ReasonMalformed})
	r.Add(4, Skipped, &RecordError{Reason: ReasonMalformed})
	r.Add(5, Skipped, &RecordError{Reason: ReasonNoCards})
	r.Finish()

	assert.Equal(t, 5, r.Read)
	assert.Equal(t, 1, r.Ingested)
	assert.Equal(t, 1, r.Duplicate)
	assert.Equal(t, 3, r.Skipped)
	assert.Equal(t, 2, r.Reasons[ReasonMalformed])
	assert.Len(t, r.Examples, 3)
	assert.Contains(t, r.String(), "skipped 3")
	assert.Contains(t, r.String(), ReasonNoCards)
}
