// Package similarity scores how alike two cards are from independent
// signals: shared deck neighbourhoods, vector embeddings and functional
// tags. Every provider distinguishes "no data" (ok == false) from a true
// zero score.
package similarity

import "sort"

// Signal names understood by the fusion ranker.
const (
	SignalJaccard    = "jaccard"
	SignalEmbed      = "embed"
	SignalTextEmbed  = "text_embed"
	SignalFunctional = "functional"
)

// Provider is one similarity signal.
type Provider interface {
	Name() string
	// Score compares two cards. ok is false when the signal has no data for
	// either card; a card is never compared with itself.
	Score(query, candidate string) (score float64, ok bool)
	// ScoreAll scores every candidate the signal knows about, excluding the
	// query. Candidates absent from the map score 0. ok is false when the
	// signal has no data for the query.
	ScoreAll(query string) (scores map[string]float64, ok bool)
}

// Scored is a candidate with its score.
type Scored struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// Sort orders by score descending, then name ascending.
func Sort(items []Scored) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Name < items[j].Name
	})
}

// FromMap flattens scores into a sorted slice, dropping keep-rejected names.
func FromMap(scores map[string]float64, keep func(string) bool) []Scored {
	out := make([]Scored, 0, len(scores))
	for name, s := range scores {
		if keep != nil && !keep(name) {
			continue
		}
		out = append(out, Scored{Name: name, Score: s})
	}
	Sort(out)
	return out
}

// Rank returns the topK candidates of a single provider. A topK <= 0 keeps
// everything.
func Rank(p Provider, query string, topK int) ([]Scored, bool) {
	scores, ok := p.ScoreAll(query)
	if !ok {
		return nil, false
	}
	delete(scores, query)
	out := FromMap(scores, nil)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, true
}
