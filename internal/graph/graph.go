// Package graph maintains the card co-occurrence graph: which cards appear
// together in decks and how often. It owns ingestion (Store.AddDeck),
// persistence behind interchangeable backends, migration between them, the
// flat pairs table and structural statistics.
package graph

import (
	"fmt"
	"sort"
	"time"
)

// Node is one card seen in at least one ingested deck.
type Node struct {
	Name      string
	Game      string
	Decks     int // decks containing the card in a counted partition
	FirstSeen time.Time
	LastSeen  time.Time
}

// PairKey identifies an undirected edge. A <= B always holds; build keys
// with NewPairKey.
type PairKey struct {
	A, B string
}

// NewPairKey orders the two names so that (a, b) and (b, a) share a key.
func NewPairKey(a, b string) PairKey {
	if b < a {
		a, b = b, a
	}
	return PairKey{A: a, B: b}
}

func (k PairKey) String() string {
	return k.A + " | " + k.B
}

// Other returns the endpoint opposite name.
func (k PairKey) Other(name string) string {
	if k.A == name {
		return k.B
	}
	return k.A
}

// Edge carries the two co-occurrence counts of a card pair.
//
// CountSet is the number of decks containing both cards. CountMultiset adds,
// per deck, the smaller of the two cards' copy counts.
type Edge struct {
	Key           PairKey
	CountSet      int
	CountMultiset int
}

// Graph is the in-memory co-occurrence graph with a precomputed undirected
// adjacency index.
type Graph struct {
	Nodes      map[string]*Node
	Edges      map[PairKey]*Edge
	LastUpdate time.Time
	TotalDecks int
	DeckIDs    map[string]struct{}

	adj map[string]map[string]struct{}
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Nodes:   make(map[string]*Node),
		Edges:   make(map[PairKey]*Edge),
		DeckIDs: make(map[string]struct{}),
		adj:     make(map[string]map[string]struct{}),
	}
}

func (g *Graph) link(k PairKey) {
	for _, pair := range [2][2]string{{k.A, k.B}, {k.B, k.A}} {
		nbrs := g.adj[pair[0]]
		if nbrs == nil {
			nbrs = make(map[string]struct{})
			g.adj[pair[0]] = nbrs
		}
		nbrs[pair[1]] = struct{}{}
	}
}

// addPair adds one deck's contribution to the edge between a and b,
// creating the edge if needed. Reports whether the edge is new.
func (g *Graph) addPair(a, b string, set, multiset int) bool {
	k := NewPairKey(a, b)
	if e, ok := g.Edges[k]; ok {
		e.CountSet += set
		e.CountMultiset += multiset
		return false
	}
	g.Edges[k] = &Edge{Key: k, CountSet: set, CountMultiset: multiset}
	g.link(k)
	return true
}

// putEdge inserts a fully formed edge, as read back from storage.
func (g *Graph) putEdge(e Edge) {
	e.Key = NewPairKey(e.Key.A, e.Key.B)
	g.Edges[e.Key] = &e
	g.link(e.Key)
}

// Neighbors returns the sorted names of cards sharing an edge with name.
// Unknown cards have no neighbours.
func (g *Graph) Neighbors(name string) []string {
	nbrs := g.adj[name]
	out := make([]string, 0, len(nbrs))
	for n := range nbrs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NeighborSet exposes the adjacency set of name. Callers must not modify it.
func (g *Graph) NeighborSet(name string) map[string]struct{} {
	return g.adj[name]
}

// Degree returns the number of distinct co-occurring cards.
func (g *Graph) Degree(name string) int {
	return len(g.adj[name])
}

// Edge looks up the pair in either order.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	e, ok := g.Edges[NewPairKey(a, b)]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// NodeNames returns a sorted list of all card names (for deterministic output)
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.Nodes))
	for n := range g.Nodes {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EdgeKeys returns all pair keys sorted by (A, B).
func (g *Graph) EdgeKeys() []PairKey {
	keys := make([]PairKey, 0, len(g.Edges))
	for k := range g.Edges {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].A != keys[j].A {
			return keys[i].A < keys[j].A
		}
		return keys[i].B < keys[j].B
	})
	return keys
}

// SortedDeckIDs returns the ingested deck IDs in ascending order.
func (g *Graph) SortedDeckIDs() []string {
	ids := make([]string, 0, len(g.DeckIDs))
	for id := range g.DeckIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy.
func (g *Graph) Clone() *Graph {
	c := New()
	c.LastUpdate = g.LastUpdate
	c.TotalDecks = g.TotalDecks
	for name, n := range g.Nodes {
		cp := *n
		c.Nodes[name] = &cp
	}
	for _, e := range g.Edges {
		c.putEdge(*e)
	}
	for id := range g.DeckIDs {
		c.DeckIDs[id] = struct{}{}
	}
	return c
}

// Check verifies structural invariants: keys are ordered, endpoints exist,
// no self-pairs, and every edge has a positive set count not exceeding its
// multiset count.
func (g *Graph) Check() error {
	for k, e := range g.Edges {
		switch {
		case k.A >= k.B:
			return fmt.Errorf("edge %s: key not ordered or self-pair", k)
		case e.Key != k:
			return fmt.Errorf("edge %s: stored under mismatched key %s", e.Key, k)
		case g.Nodes[k.A] == nil || g.Nodes[k.B] == nil:
			return fmt.Errorf("edge %s: endpoint missing from nodes", k)
		case e.CountSet < 1:
			return fmt.Errorf("edge %s: count_set %d < 1", k, e.CountSet)
		case e.CountMultiset < e.CountSet:
			return fmt.Errorf("edge %s: count_multiset %d < count_set %d", k, e.CountMultiset, e.CountSet)
		}
	}
	return nil
}
