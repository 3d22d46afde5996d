// Package deck defines the deck records consumed by ingestion and the
// card-name normalisation shared by every component that looks cards up.
package deck

import (
	"sort"
	"strings"
	"time"
)

// CardCount is one (card, copies) line of a partition.
type CardCount struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"gte=0"`
}

// Partition is a named section of a deck such as "Main" or "Sideboard".
type Partition struct {
	Name  string      `json:"name"`
	Cards []CardCount `json:"cards" validate:"dive"`
}

// Deck is one ingestion record. Either Partitions or the flat Cards list is
// set; a flat list is treated as a single "Main" partition.
type Deck struct {
	ID         string      `json:"id"`
	Game       string      `json:"game"`
	Format     string      `json:"format,omitempty"`
	Timestamp  time.Time   `json:"timestamp,omitempty"`
	Partitions []Partition `json:"partitions,omitempty" validate:"dive"`
	Cards      []CardCount `json:"cards,omitempty" validate:"dive"`
}

// NormalizeName trims and collapses internal whitespace runs to a single
// space. Case is preserved.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AllPartitions returns the deck's partitions, synthesising a "Main"
// partition from the flat card list when no partitions are given.
func (d Deck) AllPartitions() []Partition {
	if len(d.Partitions) > 0 {
		return d.Partitions
	}
	if len(d.Cards) == 0 {
		return nil
	}
	return []Partition{{Name: "Main", Cards: d.Cards}}
}

// Counted aggregates normalised card counts over every partition not named
// in exclude (compared case-insensitively). Cards whose name normalises to
// the empty string are dropped.
func (d Deck) Counted(exclude []string) map[string]int {
	skip := make(map[string]bool, len(exclude))
	for _, p := range exclude {
		skip[strings.ToLower(NormalizeName(p))] = true
	}

	counts := make(map[string]int)
	for _, p := range d.AllPartitions() {
		if skip[strings.ToLower(NormalizeName(p.Name))] {
			continue
		}
		for _, c := range p.Cards {
			name := NormalizeName(c.Name)
			if name == "" || c.Count <= 0 {
				continue
			}
			counts[name] += c.Count
		}
	}
	return counts
}

// SortedNames returns the keys of counts in ascending order.
func SortedNames(counts map[string]int) []string {
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
