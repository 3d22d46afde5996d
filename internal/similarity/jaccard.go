package similarity

// Neighborhood exposes co-occurrence adjacency; *graph.Graph and
// *graph.Store both satisfy it.
type Neighborhood interface {
	NeighborSet(name string) map[string]struct{}
}

// Jaccard scores |N(a) ∩ N(b)| / |N(a) ∪ N(b)| over graph neighbours.
type Jaccard struct {
	g Neighborhood
}

func NewJaccard(g Neighborhood) *Jaccard {
	return &Jaccard{g: g}
}

func (j *Jaccard) Name() string { return SignalJaccard }

func (j *Jaccard) Score(query, candidate string) (float64, bool) {
	if query == candidate {
		return 0, false
	}
	nq := j.g.NeighborSet(query)
	if len(nq) == 0 {
		return 0, false
	}
	return jaccard(nq, j.g.NeighborSet(candidate)), true
}

// ScoreAll visits the two-hop neighbourhood of query: any card outside it
// shares no neighbour and scores 0.
func (j *Jaccard) ScoreAll(query string) (map[string]float64, bool) {
	nq := j.g.NeighborSet(query)
	if len(nq) == 0 {
		return nil, false
	}

	candidates := make(map[string]struct{})
	for n := range nq {
		for m := range j.g.NeighborSet(n) {
			if m != query {
				candidates[m] = struct{}{}
			}
		}
	}

	scores := make(map[string]float64, len(candidates))
	for c := range candidates {
		if s := jaccard(nq, j.g.NeighborSet(c)); s > 0 {
			scores[c] = s
		}
	}
	return scores, true
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for x := range a {
		if _, ok := b[x]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
