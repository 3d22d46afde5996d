package graph

import (
	"sort"
	"time"
)

const day = 24 * time.Hour

// StaleCard is a card that has not appeared in a deck for a while.
type StaleCard struct {
	Name          string `json:"name"`
	DaysSinceSeen int64  `json:"days_since_seen"`
	Decks         int    `json:"decks"`
}

// StalenessReport contains staleness analysis results
type StalenessReport struct {
	StaleCards     []StaleCard `json:"stale_cards"`
	StaleCardCount int         `json:"stale_card_count"`
	// NewCards were first seen within the window.
	NewCardCount int `json:"new_card_count"`
}

// ComputeStaleness measures card age against the graph's last update rather
// than the wall clock, so a graph analysed long after ingestion is judged
// by its own timeline.
func ComputeStaleness(g *Graph, staleDays int64, topN int) *StalenessReport {
	rep := &StalenessReport{}
	ref := g.LastUpdate
	if ref.IsZero() {
		return rep
	}
	window := time.Duration(staleDays) * day

	var stale []StaleCard
	for _, n := range g.Nodes {
		if n.LastSeen.IsZero() {
			continue
		}
		if age := ref.Sub(n.LastSeen); age > window {
			stale = append(stale, StaleCard{
				Name:          n.Name,
				DaysSinceSeen: int64(age / day),
				Decks:         n.Decks,
			})
		}
		if ref.Sub(n.FirstSeen) <= window {
			rep.NewCardCount++
		}
	}
	sort.Slice(stale, func(i, j int) bool {
		if stale[i].DaysSinceSeen != stale[j].DaysSinceSeen {
			return stale[i].DaysSinceSeen > stale[j].DaysSinceSeen
		}
		return stale[i].Name < stale[j].Name
	})

	rep.StaleCardCount = len(stale)
	if len(stale) > topN {
		stale = stale[:topN]
	}
	rep.StaleCards = stale
	return rep
}
