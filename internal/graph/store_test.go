package graph

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"decksage/simgraph/internal/deck"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testStore() *Store {
	return NewStore(nil, Options{
		ExcludePartitions: []string{"Sideboard"},
		Now:               func() time.Time { return fixedNow },
	})
}

func mainboard(cards ...deck.CardCount) []deck.Partition {
	return []deck.Partition{{Name: "Main", Cards: cards}}
}

func burnDecks() (deck.Deck, deck.Deck) {
	a := deck.Deck{ID: "A", Game: "magic", Partitions: mainboard(
		deck.CardCount{Name: "Lightning Bolt", Count: 4},
		deck.CardCount{Name: "Mountain", Count: 20},
	)}
	b := deck.Deck{ID: "B", Game: "magic", Partitions: mainboard(
		deck.CardCount{Name: "Lightning Bolt", Count: 2},
		deck.CardCount{Name: "Chain Lightning", Count: 2},
		deck.CardCount{Name: "Mountain", Count: 18},
	)}
	return a, b
}

func TestAddDeck_BurnScenario(t *testing.T) {
	s := testStore()
	a, b := burnDecks()
	s.AddDeck(a)
	s.AddDeck(b)

	e, ok := s.Edge("Lightning Bolt", "Chain Lightning")
	if !ok {
		t.Fatal("expected edge Lightning Bolt - Chain Lightning")
	}
	if e.CountSet != 1 {
		t.Errorf("expected count_set 1, got %d", e.CountSet)
	}
	if e.CountMultiset != 2 {
		t.Errorf("expected count_multiset min(2,2)=2, got %d", e.CountMultiset)
	}

	got := s.Neighbors("Mountain")
	want := []string{"Chain Lightning", "Lightning Bolt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Mountain neighbors = %v, want %v", got, want)
	}

	bm, _ := s.Edge("Mountain", "Lightning Bolt")
	if bm.CountSet != 2 || bm.CountMultiset != 4+2 {
		t.Errorf("Bolt-Mountain expected (2,6), got (%d,%d)", bm.CountSet, bm.CountMultiset)
	}

	nodes, edges, decks := s.Counts()
	if nodes != 3 || edges != 3 || decks != 2 {
		t.Errorf("expected 3 nodes, 3 edges, 2 decks; got %d/%d/%d", nodes, edges, decks)
	}
	n, _ := s.Node("Lightning Bolt")
	if n.Decks != 2 || n.Game != "magic" {
		t.Errorf("unexpected node %+v", n)
	}
}

func TestAddDeck_EdgeIsSymmetric(t *testing.T) {
	s := testStore()
	a, b := burnDecks()
	s.AddDeck(a)
	s.AddDeck(b)
	for _, name := range s.NodeNames() {
		for _, nb := range s.Neighbors(name) {
			if nb == name {
				t.Errorf("%s is its own neighbor", name)
			}
			e1, ok1 := s.Edge(name, nb)
			e2, ok2 := s.Edge(nb, name)
			if !ok1 || !ok2 || e1 != e2 {
				t.Errorf("edge %s/%s not symmetric", name, nb)
			}
		}
	}
}

func TestAddDeck_DuplicateID(t *testing.T) {
	s := testStore()
	a, _ := burnDecks()
	first := s.AddDeck(a)
	if first.Duplicate || first.NewEdges != 1 {
		t.Fatalf("unexpected first result %+v", first)
	}
	second := s.AddDeck(a)
	if !second.Duplicate {
		t.Fatal("second add with same ID should be a duplicate")
	}
	e, _ := s.Edge("Lightning Bolt", "Mountain")
	if e.CountSet != 1 {
		t.Errorf("duplicate deck changed counts: %d", e.CountSet)
	}

	// Decks without IDs are purely additive.
	a.ID = ""
	s.AddDeck(a)
	s.AddDeck(a)
	e, _ = s.Edge("Lightning Bolt", "Mountain")
	if e.CountSet != 3 {
		t.Errorf("expected 3 after two anonymous adds, got %d", e.CountSet)
	}
	if _, _, decks := s.Counts(); decks != 3 {
		t.Errorf("expected 3 decks processed, got %d", decks)
	}
}

func TestAddDeck_SideboardExcludedAndEmpty(t *testing.T) {
	s := testStore()
	d := deck.Deck{ID: "sb", Partitions: []deck.Partition{
		{Name: "sideboard", Cards: []deck.CardCount{{Name: "Pyroblast", Count: 2}, {Name: "Red Elemental Blast", Count: 2}}},
	}}
	res := s.AddDeck(d)
	if !res.Empty {
		t.Fatalf("sideboard-only deck should be empty, got %+v", res)
	}
	if nodes, edges, decks := s.Counts(); nodes != 0 || edges != 0 || decks != 0 {
		t.Errorf("empty deck changed graph: %d/%d/%d", nodes, edges, decks)
	}

	// The ID of an empty deck is not consumed.
	d.Partitions = append(d.Partitions, deck.Partition{Name: "Main", Cards: []deck.CardCount{{Name: "Island", Count: 1}}})
	if res := s.AddDeck(d); res.Empty || res.Duplicate {
		t.Errorf("expected the deck to ingest after gaining cards, got %+v", res)
	}
}

func TestAddDeck_Timestamps(t *testing.T) {
	s := testStore()
	early := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	mk := func(id string, ts time.Time) deck.Deck {
		return deck.Deck{ID: id, Timestamp: ts, Cards: []deck.CardCount{{Name: "Opt", Count: 4}, {Name: "Island", Count: 10}}}
	}
	s.AddDeck(mk("late", late))
	s.AddDeck(mk("early", early))

	n, _ := s.Node("Opt")
	if !n.FirstSeen.Equal(early) || !n.LastSeen.Equal(late) {
		t.Errorf("expected first=%v last=%v, got %v/%v", early, late, n.FirstSeen, n.LastSeen)
	}
	if !s.Snapshot().LastUpdate.Equal(fixedNow) {
		t.Errorf("last update should come from the clock")
	}
}

func TestEmptyCorpus(t *testing.T) {
	s := testStore()
	nodes, edges, decks := s.Counts()
	if nodes != 0 || edges != 0 || decks != 0 {
		t.Errorf("empty store should be empty, got %d/%d/%d", nodes, edges, decks)
	}
	if len(s.Neighbors("Anything")) != 0 {
		t.Error("unknown card should have no neighbors")
	}
	if _, ok := s.Edge("A", "B"); ok {
		t.Error("unknown edge reported present")
	}
}

func TestIngest_Report(t *testing.T) {
	s := testStore()
	input := strings.Join([]string{
		`{"id":"A","game":"magic","cards":[{"name":"Lightning Bolt","count":4},{"name":"Mountain","count":20}]}`,
		`{"id":"A","game":"magic","cards":[{"name":"Lightning Bolt","count":4},{"name":"Mountain","count":20}]}`,
		`garbage`,
		`{"id":"C","partitions":[{"name":"Sideboard","cards":[{"name":"Duress","count":2}]}]}`,
		`{"id":"D","game":"magic","cards":[{"name":"Shock","count":4},{"name":"Mountain","count":20}]}`,
	}, "\n")

	rep := deck.NewReport()
	if err := s.Ingest(context.Background(), strings.NewReader(input), rep); err != nil {
		t.Fatal(err)
	}
	if rep.Read != 5 || rep.Ingested != 2 || rep.Duplicate != 1 || rep.Skipped != 2 {
		t.Errorf("unexpected report %+v", rep)
	}
	if rep.Reasons[deck.ReasonMalformed] != 1 || rep.Reasons[deck.ReasonNoCards] != 1 {
		t.Errorf("unexpected reasons %v", rep.Reasons)
	}
	if got := s.Degree("Mountain"); got != 2 {
		t.Errorf("expected Mountain degree 2, got %d", got)
	}
}

func TestIngest_OversizedLineDoesNotAbortRun(t *testing.T) {
	s := testStore()
	input := strings.Join([]string{
		`{"id":"A","game":"magic","cards":[{"name":"Lightning Bolt","count":4},{"name":"Mountain","count":20}]}`,
		`{"id":"huge","pad":"` + strings.Repeat("x", deck.MaxLineBytes+1) + `"}`,
		`{"id":"B","game":"magic","cards":[{"name":"Shock","count":4},{"name":"Mountain","count":20}]}`,
	}, "\n")

	rep := deck.NewReport()
	if err := s.Ingest(context.Background(), strings.NewReader(input), rep); err != nil {
		t.Fatalf("ingest aborted: %v", err)
	}
	if rep.Read != 3 || rep.Ingested != 2 || rep.Skipped != 1 {
		t.Errorf("unexpected report %+v", rep)
	}
	if rep.Reasons[deck.ReasonTooLong] != 1 {
		t.Errorf("expected one %q skip, got %v", deck.ReasonTooLong, rep.Reasons)
	}
	if got := s.Degree("Mountain"); got != 2 {
		t.Errorf("expected Mountain degree 2, got %d", got)
	}
}

func TestIngest_Cancelled(t *testing.T) {
	s := testStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Ingest(ctx, strings.NewReader(`{"id":"x","cards":[{"name":"a","count":1},{"name":"b","count":1}]}`), deck.NewReport())
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestSave_NoBackend(t *testing.T) {
	if err := testStore().Save(context.Background()); err == nil {
		t.Fatal("expected ErrNoBackend")
	}
}
