package graph

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"decksage/simgraph/internal/db"
)

// SQLiteBackend stores the graph in the nodes/edges/decks/meta tables of a
// SQLite file. The same file may also hold card embeddings.
type SQLiteBackend struct {
	path string
}

func NewSQLiteBackend(path string) *SQLiteBackend {
	return &SQLiteBackend{path: path}
}

func (b *SQLiteBackend) Kind() string     { return KindSQLite }
func (b *SQLiteBackend) Location() string { return b.path }

func (b *SQLiteBackend) Save(ctx context.Context, g *Graph) error {
	d, err := db.OpenDB(b.path)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.ReplaceGraph(ctx, graphToRows(g))
}

func (b *SQLiteBackend) Load(ctx context.Context) (*Graph, error) {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", b.path, ErrNoGraph)
	}
	d, err := db.OpenDB(b.path)
	if err != nil {
		return nil, err
	}
	defer d.Close()

	rows, err := d.LoadGraph(ctx)
	if err != nil {
		return nil, err
	}
	g, err := graphFromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("database %s: %w", b.path, err)
	}
	return g, nil
}

// Exists reports whether the file holds a saved graph, not merely whether
// the file exists; an embeddings-only database has no graph.
func (b *SQLiteBackend) Exists(ctx context.Context) (bool, error) {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	d, err := db.OpenDB(b.path)
	if err != nil {
		return false, err
	}
	defer d.Close()
	return d.HasGraph(ctx)
}

// Remove clears the graph tables but keeps the file and its embeddings.
func (b *SQLiteBackend) Remove(ctx context.Context) error {
	if _, err := os.Stat(b.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	d, err := db.OpenDB(b.path)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.ClearGraph(ctx)
}

// Size counts the stored rows without decoding the graph.
func (b *SQLiteBackend) Size(ctx context.Context) (nodes, edges int, err error) {
	d, err := db.OpenDB(b.path)
	if err != nil {
		return 0, 0, err
	}
	defer d.Close()
	if nodes, err = d.CountNodes(ctx); err != nil {
		return 0, 0, err
	}
	if edges, err = d.CountEdges(ctx); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

func graphToRows(g *Graph) db.GraphRows {
	rows := db.GraphRows{
		Nodes:   make([]db.Node, 0, len(g.Nodes)),
		Edges:   make([]db.Edge, 0, len(g.Edges)),
		DeckIDs: g.SortedDeckIDs(),
		Meta: map[string]string{
			db.MetaLastUpdate: strconv.FormatInt(g.LastUpdate.UnixMilli(), 10),
			db.MetaTotalDecks: strconv.Itoa(g.TotalDecks),
		},
	}
	for _, name := range g.NodeNames() {
		n := g.Nodes[name]
		rows.Nodes = append(rows.Nodes, db.Node{
			Name:      n.Name,
			Game:      n.Game,
			Decks:     n.Decks,
			FirstSeen: n.FirstSeen.UnixMilli(),
			LastSeen:  n.LastSeen.UnixMilli(),
		})
	}
	for _, k := range g.EdgeKeys() {
		e := g.Edges[k]
		rows.Edges = append(rows.Edges, db.Edge{
			Card1:         k.A,
			Card2:         k.B,
			CountSet:      e.CountSet,
			CountMultiset: e.CountMultiset,
		})
	}
	return rows
}

func graphFromRows(rows db.GraphRows) (*Graph, error) {
	g := New()
	for _, n := range rows.Nodes {
		g.Nodes[n.Name] = &Node{
			Name:      n.Name,
			Game:      n.Game,
			Decks:     n.Decks,
			FirstSeen: fromMillis(n.FirstSeen),
			LastSeen:  fromMillis(n.LastSeen),
		}
	}
	for _, e := range rows.Edges {
		g.putEdge(Edge{Key: PairKey{A: e.Card1, B: e.Card2}, CountSet: e.CountSet, CountMultiset: e.CountMultiset})
	}
	for _, id := range rows.DeckIDs {
		g.DeckIDs[id] = struct{}{}
	}

	if v, ok := rows.Meta[db.MetaLastUpdate]; ok {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", db.MetaLastUpdate, err)
		}
		g.LastUpdate = fromMillis(ms)
	}
	if v, ok := rows.Meta[db.MetaTotalDecks]; ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", db.MetaTotalDecks, err)
		}
		g.TotalDecks = n
	}
	if err := g.Check(); err != nil {
		return nil, err
	}
	return g, nil
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
