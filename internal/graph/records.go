package graph

import (
	"fmt"
	"time"
)

// Wire records shared by the JSON and badger backends.

const snapshotVersion = 1

type nodeRecord struct {
	Name      string    `json:"name"`
	Game      string    `json:"game,omitempty"`
	Decks     int       `json:"decks"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

type edgeRecord struct {
	A             string `json:"a"`
	B             string `json:"b"`
	CountSet      int    `json:"count_set"`
	CountMultiset int    `json:"count_multiset"`
}

type metaRecord struct {
	Version    int       `json:"version"`
	LastUpdate time.Time `json:"last_update"`
	TotalDecks int       `json:"total_decks"`
}

func toNodeRecord(n *Node) nodeRecord {
	return nodeRecord{Name: n.Name, Game: n.Game, Decks: n.Decks, FirstSeen: n.FirstSeen, LastSeen: n.LastSeen}
}

func (r nodeRecord) node() *Node {
	return &Node{Name: r.Name, Game: r.Game, Decks: r.Decks, FirstSeen: r.FirstSeen, LastSeen: r.LastSeen}
}

func toEdgeRecord(e *Edge) edgeRecord {
	return edgeRecord{A: e.Key.A, B: e.Key.B, CountSet: e.CountSet, CountMultiset: e.CountMultiset}
}

func (r edgeRecord) edge() Edge {
	return Edge{Key: NewPairKey(r.A, r.B), CountSet: r.CountSet, CountMultiset: r.CountMultiset}
}

func (g *Graph) meta() metaRecord {
	return metaRecord{Version: snapshotVersion, LastUpdate: g.LastUpdate, TotalDecks: g.TotalDecks}
}

func (g *Graph) applyMeta(m metaRecord) error {
	if m.Version > snapshotVersion {
		return fmt.Errorf("snapshot version %d is newer than supported %d", m.Version, snapshotVersion)
	}
	g.LastUpdate = m.LastUpdate
	g.TotalDecks = m.TotalDecks
	return nil
}
