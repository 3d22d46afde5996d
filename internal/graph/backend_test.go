package graph

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"decksage/simgraph/internal/deck"
	"decksage/simgraph/internal/metrics"
)

func sampleGraph(t *testing.T) *Graph {
	t.Helper()
	s := testStore()
	a, b := burnDecks()
	s.AddDeck(a)
	s.AddDeck(b)
	s.AddDeck(deck.Deck{Game: "magic", Cards: []deck.CardCount{{Name: "Shock", Count: 3}, {Name: "Mountain", Count: 17}}})
	return s.Snapshot()
}

func backendsFor(t *testing.T) map[string]func(name string) Backend {
	t.Helper()
	dir := t.TempDir()
	return map[string]func(string) Backend{
		KindJSON:   func(n string) Backend { return NewJSONBackend(filepath.Join(dir, n+".json")) },
		KindSQLite: func(n string) Backend { return NewSQLiteBackend(filepath.Join(dir, n+".db")) },
		KindBadger: func(n string) Backend { return NewBadgerBackend(filepath.Join(dir, n+".badger")) },
	}
}

func assertSameGraph(t *testing.T, want, got *Graph) {
	t.Helper()
	if diffs := Compare(want, got, 10); len(diffs) > 0 {
		t.Fatalf("graphs differ: %v", diffs)
	}
	if !want.LastUpdate.Equal(got.LastUpdate) {
		t.Errorf("last update %v != %v", want.LastUpdate, got.LastUpdate)
	}
	for name, n := range want.Nodes {
		if !n.FirstSeen.Equal(got.Nodes[name].FirstSeen) || !n.LastSeen.Equal(got.Nodes[name].LastSeen) {
			t.Errorf("node %q timestamps changed", name)
		}
	}
	for id := range want.DeckIDs {
		if _, ok := got.DeckIDs[id]; !ok {
			t.Errorf("deck id %q lost", id)
		}
	}
	if got.Degree("Mountain") != want.Degree("Mountain") {
		t.Errorf("adjacency not rebuilt on load")
	}
}

func TestBackends_RoundTrip(t *testing.T) {
	ctx := context.Background()
	g := sampleGraph(t)

	for kind, mk := range backendsFor(t) {
		t.Run(kind, func(t *testing.T) {
			b := mk("graph")

			exists, err := b.Exists(ctx)
			if err != nil || exists {
				t.Fatalf("fresh backend: exists=%v err=%v", exists, err)
			}
			if _, err := b.Load(ctx); !errors.Is(err, ErrNoGraph) {
				t.Fatalf("expected ErrNoGraph before save, got %v", err)
			}

			if err := b.Save(ctx, g); err != nil {
				t.Fatalf("save: %v", err)
			}
			exists, err = b.Exists(ctx)
			if err != nil || !exists {
				t.Fatalf("after save: exists=%v err=%v", exists, err)
			}

			got, err := b.Load(ctx)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			assertSameGraph(t, g, got)

			// Saving again overwrites rather than accumulating.
			if err := b.Save(ctx, New()); err != nil {
				t.Fatalf("save empty: %v", err)
			}
			got, err = b.Load(ctx)
			if err != nil {
				t.Fatalf("reload: %v", err)
			}
			if len(got.Nodes) != 0 || len(got.Edges) != 0 {
				t.Errorf("expected empty graph after overwrite, got %d/%d", len(got.Nodes), len(got.Edges))
			}

			if err := b.Remove(ctx); err != nil {
				t.Fatalf("remove: %v", err)
			}
			if exists, _ := b.Exists(ctx); exists {
				t.Error("backend still exists after remove")
			}
		})
	}
}

func TestOpen_LoadsOrStartsEmpty(t *testing.T) {
	ctx := context.Background()
	b := NewJSONBackend(filepath.Join(t.TempDir(), "g.json"))

	s, err := Open(ctx, b, Options{})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := burnDecks()
	s.AddDeck(a)
	if err := s.Save(ctx); err != nil {
		t.Fatal(err)
	}

	s2, err := Open(ctx, b, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res := s2.AddDeck(a); !res.Duplicate {
		t.Error("deck IDs should survive a save/open cycle")
	}
	if _, edges, decks := s2.Counts(); edges != 1 || decks != 1 {
		t.Errorf("expected 1 edge 1 deck, got %d/%d", edges, decks)
	}
}

func TestMigrate_AllPairs(t *testing.T) {
	ctx := context.Background()
	g := sampleGraph(t)
	kinds := []string{KindJSON, KindSQLite, KindBadger}

	for _, from := range kinds {
		for _, to := range kinds {
			if from == to {
				continue
			}
			t.Run(from+"->"+to, func(t *testing.T) {
				mk := backendsFor(t)
				src, dst := mk[from]("src"), mk[to]("dst")
				if err := src.Save(ctx, g); err != nil {
					t.Fatal(err)
				}

				res, err := Migrate(ctx, src, dst, MigrateOptions{DeleteSource: true})
				if err != nil {
					t.Fatalf("migrate: %v", err)
				}
				if res.Nodes != len(g.Nodes) || res.Edges != len(g.Edges) || !res.SourceDeleted {
					t.Errorf("unexpected result %+v", res)
				}
				if exists, _ := src.Exists(ctx); exists {
					t.Error("source should be deleted after verified migration")
				}

				got, err := dst.Load(ctx)
				if err != nil {
					t.Fatal(err)
				}
				assertSameGraph(t, g, got)
			})
		}
	}
}

// lossyBackend drops one edge on load to simulate a corrupted destination.
type lossyBackend struct {
	Backend
}

func (l lossyBackend) Load(ctx context.Context) (*Graph, error) {
	g, err := l.Backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	for k := range g.Edges {
		delete(g.Edges, k)
		break
	}
	return g, nil
}

func TestMigrate_MismatchKeepsSource(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := NewJSONBackend(filepath.Join(dir, "src.json"))
	dst := lossyBackend{NewSQLiteBackend(filepath.Join(dir, "dst.db"))}

	g := sampleGraph(t)
	if err := src.Save(ctx, g); err != nil {
		t.Fatal(err)
	}

	_, err := Migrate(ctx, src, dst, MigrateOptions{DeleteSource: true})
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mismatch.SourceEdges != len(g.Edges) || mismatch.DestEdges != len(g.Edges)-1 {
		t.Errorf("unexpected counts %+v", mismatch)
	}
	if !IsMismatch(err) {
		t.Error("IsMismatch should recognise the error")
	}
	if exists, _ := src.Exists(ctx); !exists {
		t.Error("source must survive a failed verification")
	}
}

// shortWriteBackend silently drops one edge when saving.
type shortWriteBackend struct {
	*SQLiteBackend
	loads int
}

func (b *shortWriteBackend) Save(ctx context.Context, g *Graph) error {
	c := g.Clone()
	delete(c.Edges, c.EdgeKeys()[0])
	return b.SQLiteBackend.Save(ctx, c)
}

func (b *shortWriteBackend) Load(ctx context.Context) (*Graph, error) {
	b.loads++
	return b.SQLiteBackend.Load(ctx)
}

func TestMigrate_RowCountCheckSkipsReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := NewJSONBackend(filepath.Join(dir, "src.json"))
	dst := &shortWriteBackend{SQLiteBackend: NewSQLiteBackend(filepath.Join(dir, "dst.db"))}

	g := sampleGraph(t)
	if err := src.Save(ctx, g); err != nil {
		t.Fatal(err)
	}

	_, err := Migrate(ctx, src, dst, MigrateOptions{DeleteSource: true})
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %v", err)
	}
	if mismatch.DestEdges != len(g.Edges)-1 || mismatch.DestNodes != len(g.Nodes) {
		t.Errorf("unexpected counts %+v", mismatch)
	}
	if dst.loads != 0 {
		t.Errorf("destination reloaded %d times despite count mismatch", dst.loads)
	}
	if exists, _ := src.Exists(ctx); !exists {
		t.Error("source must survive a failed verification")
	}
}

func TestSQLiteBackend_Size(t *testing.T) {
	ctx := context.Background()
	g := sampleGraph(t)
	b, err := NewBackend(KindSQLite, filepath.Join(t.TempDir(), "g.db"), metrics.New())
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Save(ctx, g); err != nil {
		t.Fatal(err)
	}

	sz, ok := asSizer(b)
	if !ok {
		t.Fatal("instrumented sqlite backend should expose Size")
	}
	nodes, edges, err := sz.Size(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if nodes != len(g.Nodes) || edges != len(g.Edges) {
		t.Errorf("Size = %d/%d, want %d/%d", nodes, edges, len(g.Nodes), len(g.Edges))
	}
	if _, ok := asSizer(NewJSONBackend("x.json")); ok {
		t.Error("json backend has no cheap row count")
	}
}

func TestMigrate_Guards(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := NewJSONBackend(filepath.Join(dir, "a.json"))

	if _, err := Migrate(ctx, a, NewJSONBackend(filepath.Join(dir, "a.json")), MigrateOptions{}); err == nil {
		t.Error("expected error migrating onto itself")
	}
	if _, err := Migrate(ctx, a, NewSQLiteBackend(filepath.Join(dir, "b.db")), MigrateOptions{}); !errors.Is(err, ErrNoGraph) {
		t.Errorf("expected ErrNoGraph for missing source, got %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	if _, err := NewBackend("neo4j", "x", nil); !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}

	m := metrics.New()
	b, err := NewBackend(KindJSON, filepath.Join(t.TempDir(), "g.json"), m)
	if err != nil {
		t.Fatal(err)
	}
	if b.Kind() != KindJSON {
		t.Errorf("instrumented backend should keep its kind, got %q", b.Kind())
	}
	if err := b.Save(context.Background(), sampleGraph(t)); err != nil {
		t.Fatal(err)
	}
}
