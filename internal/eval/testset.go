// Package eval scores rankings against graded test sets and measures how
// consistently independent judges produced those test sets.
package eval

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/goccy/go-json"

	"decksage/simgraph/internal/deck"
)

// Bucket is a graded relevance level. Higher values are more relevant.
type Bucket int

const (
	Irrelevant Bucket = iota
	MarginallyRelevant
	SomewhatRelevant
	Relevant
	HighlyRelevant
)

// Buckets lists every bucket from most to least relevant.
var Buckets = []Bucket{HighlyRelevant, Relevant, SomewhatRelevant, MarginallyRelevant, Irrelevant}

var bucketNames = map[Bucket]string{
	HighlyRelevant:     "highly_relevant",
	Relevant:           "relevant",
	SomewhatRelevant:   "somewhat_relevant",
	MarginallyRelevant: "marginally_relevant",
	Irrelevant:         "irrelevant",
}

func (b Bucket) String() string {
	if s, ok := bucketNames[b]; ok {
		return s
	}
	return fmt.Sprintf("bucket(%d)", int(b))
}

// Weight is the fixed relevance score of the bucket.
func (b Bucket) Weight() float64 {
	switch b {
	case HighlyRelevant:
		return 1.0
	case Relevant:
		return 0.75
	case SomewhatRelevant:
		return 0.5
	case MarginallyRelevant:
		return 0.25
	}
	return 0
}

// ParseBucket maps a test-set key to its bucket.
func ParseBucket(s string) (Bucket, bool) {
	for b, name := range bucketNames {
		if name == s {
			return b, true
		}
	}
	return 0, false
}

// GradedBuckets holds the judged cards of one query.
type GradedBuckets map[Bucket][]string

// Index maps each graded card to its bucket. A card listed in several
// buckets keeps the most relevant one.
func (g GradedBuckets) Index() map[string]Bucket {
	idx := make(map[string]Bucket)
	for _, b := range Buckets {
		for _, c := range g[b] {
			if _, seen := idx[c]; !seen {
				idx[c] = b
			}
		}
	}
	return idx
}

// Size counts graded cards across all buckets.
func (g GradedBuckets) Size() int {
	return len(g.Index())
}

// TestSet maps a query card to its graded buckets.
type TestSet struct {
	Queries map[string]GradedBuckets
	// Meta keeps the top-level fields of a wrapped test set.
	Meta map[string]json.RawMessage
}

// QueryNames returns the queries in ascending order.
func (ts *TestSet) QueryNames() []string {
	names := make([]string, 0, len(ts.Queries))
	for q := range ts.Queries {
		names = append(names, q)
	}
	sort.Strings(names)
	return names
}

// LoadTestSetFile opens path and decodes it with LoadTestSet.
func LoadTestSetFile(path string) (*TestSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening test set: %w", err)
	}
	defer f.Close()
	ts, err := LoadTestSet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ts, nil
}

// LoadTestSet decodes either a bare {query: {bucket: [cards]}} object or
// one wrapped as {"queries": {...}, ...}. Keys inside a query that are not
// bucket names are ignored. Card names are normalised.
func LoadTestSet(r io.Reader) (*TestSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading test set: %w", err)
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("test set must be a JSON object: %w", err)
	}

	ts := &TestSet{Queries: make(map[string]GradedBuckets)}
	queries := top
	if inner, ok := wrappedQueries(top); ok {
		queries = inner
		ts.Meta = make(map[string]json.RawMessage, len(top)-1)
		for k, v := range top {
			if k != "queries" {
				ts.Meta[k] = v
			}
		}
	}

	for rawQuery, body := range queries {
		query := deck.NormalizeName(rawQuery)
		if query == "" {
			return nil, fmt.Errorf("test set has an empty query name")
		}
		gb, err := decodeBuckets(body)
		if err != nil {
			return nil, fmt.Errorf("query %q: %w", query, err)
		}
		if prev, ok := ts.Queries[query]; ok {
			for b, cards := range gb {
				prev[b] = append(prev[b], cards...)
			}
			continue
		}
		ts.Queries[query] = gb
	}
	return ts, nil
}

// wrappedQueries reports whether top is the wrapped shape. A bare test set
// may contain a card literally named "queries", so the inner object must
// itself look like a query map rather than a bucket map.
func wrappedQueries(top map[string]json.RawMessage) (map[string]json.RawMessage, bool) {
	raw, ok := top["queries"]
	if !ok {
		return nil, false
	}
	var inner map[string]json.RawMessage
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, false
	}
	for k := range inner {
		if _, isBucket := ParseBucket(k); isBucket {
			return nil, false
		}
	}
	return inner, true
}

func decodeBuckets(body json.RawMessage) (GradedBuckets, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("expected an object of buckets, got %s", preview(trimmed))
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("decoding buckets: %w", err)
	}
	gb := make(GradedBuckets)
	for key, raw := range fields {
		b, ok := ParseBucket(key)
		if !ok {
			continue
		}
		var cards []string
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, fmt.Errorf("bucket %s: expected a list of card names, got %s", key, preview(raw))
		}
		for _, c := range cards {
			if c = deck.NormalizeName(c); c != "" {
				gb[b] = append(gb[b], c)
			}
		}
	}
	return gb, nil
}

func preview(b []byte) string {
	const max = 40
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
