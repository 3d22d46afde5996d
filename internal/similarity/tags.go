package similarity

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"
)

// TagTable maps card names to functional tag sets.
type TagTable map[string]map[string]struct{}

// LoadTagsJSON reads {"card name": ["removal", "burn", ...]}. Tags are
// lower-cased; names are normalised.
func LoadTagsJSON(r io.Reader) (TagTable, error) {
	var raw map[string][]string
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding tags: %w", err)
	}
	byName := normalizeKeys(raw, "tags")
	t := make(TagTable, len(byName))
	for n, tags := range byName {
		set := make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
				set[tag] = struct{}{}
			}
		}
		t[n] = set
	}
	return t, nil
}

// Tags scores Jaccard overlap of functional tag sets.
type Tags struct {
	table TagTable
}

func NewTags(table TagTable) *Tags {
	return &Tags{table: table}
}

func (t *Tags) Name() string { return SignalFunctional }

func (t *Tags) Score(query, candidate string) (float64, bool) {
	if query == candidate {
		return 0, false
	}
	q, ok := t.table[query]
	if !ok {
		return 0, false
	}
	return jaccard(q, t.table[candidate]), true
}

func (t *Tags) ScoreAll(query string) (map[string]float64, bool) {
	q, ok := t.table[query]
	if !ok {
		return nil, false
	}
	scores := make(map[string]float64)
	if len(q) == 0 {
		return scores, true
	}
	for name, tags := range t.table {
		if name == query {
			continue
		}
		if s := jaccard(q, tags); s > 0 {
			scores[name] = s
		}
	}
	return scores, true
}
