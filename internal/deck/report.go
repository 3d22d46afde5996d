package deck

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// maxExamples bounds how many individual skipped lines a report keeps.
const maxExamples = 20

// Outcome of offering one record to the graph.
type Outcome int

const (
	Ingested Outcome = iota
	Duplicate
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Ingested:
		return "ingested"
	case Duplicate:
		return "duplicate"
	default:
		return "skipped"
	}
}

// Skip records one line that did not reach the graph.
type Skip struct {
	Line   int
	Reason string
	Err    error
}

// Report summarises one ingestion run.
type Report struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Read      int
	Ingested  int
	Duplicate int
	Skipped   int
	Reasons   map[string]int
	Examples  []Skip
}

func NewReport() *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Reasons: make(map[string]int),
	}
}

// Add counts one record's outcome. err is the reason for Skipped records
// and ignored otherwise.
func (r *Report) Add(line int, o Outcome, err error) {
	r.Read++
	switch o {
	case Ingested:
		r.Ingested++
	case Duplicate:
		r.Duplicate++
	case Skipped:
		r.Skipped++
		reason := "unknown"
		if err != nil {
			reason = ReasonOf(err)
		}
		r.Reasons[reason]++
		if len(r.Examples) < maxExamples {
			r.Examples = append(r.Examples, Skip{Line: line, Reason: reason, Err: err})
		}
	}
}

// Finish stamps the end time.
func (r *Report) Finish() {
	r.Finished = time.Now()
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: read %s, ingested %s, duplicate %s, skipped %s",
		r.RunID,
		humanize.Comma(int64(r.Read)),
		humanize.Comma(int64(r.Ingested)),
		humanize.Comma(int64(r.Duplicate)),
		humanize.Comma(int64(r.Skipped)))

	reasons := make([]string, 0, len(r.Reasons))
	for k := range r.Reasons {
		reasons = append(reasons, k)
	}
	sort.Strings(reasons)
	for _, k := range reasons {
		fmt.Fprintf(&b, "\n  %-20s %s", k, humanize.Comma(int64(r.Reasons[k])))
	}
	return b.String()
}
