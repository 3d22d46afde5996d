package graph

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"decksage/simgraph/internal/deck"
	"decksage/simgraph/internal/logging"
	"decksage/simgraph/internal/metrics"
)

// AddResult describes the effect of one AddDeck call.
type AddResult struct {
	Duplicate bool // deck ID already ingested; nothing changed
	Empty     bool // no cards in counted partitions; nothing changed
	Cards     int  // distinct counted cards
	NewNodes  int
	NewEdges  int
	Pairs     int // edges touched
}

// Options configures a Store.
type Options struct {
	// ExcludePartitions names partitions whose cards are ignored.
	ExcludePartitions []string
	Metrics           *metrics.Metrics
	// Now overrides the clock; used by tests.
	Now func() time.Time
}

// Store is the single-writer owner of a Graph. Reads may run concurrently
// with each other but not with AddDeck.
type Store struct {
	mu      sync.RWMutex
	g       *Graph
	backend Backend
	exclude []string
	metrics *metrics.Metrics
	now     func() time.Time
	log     zerolog.Logger
}

// NewStore returns a store over an empty graph persisted to backend, which
// may be nil for purely in-memory use.
func NewStore(backend Backend, opts Options) *Store {
	return newStore(New(), backend, opts)
}

func newStore(g *Graph, backend Backend, opts Options) *Store {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		g:       g,
		backend: backend,
		exclude: opts.ExcludePartitions,
		metrics: opts.Metrics,
		now:     now,
		log:     logging.Component("graph"),
	}
}

// Open loads the graph held by backend, or starts empty when the backend
// has never been written.
func Open(ctx context.Context, backend Backend, opts Options) (*Store, error) {
	exists, err := backend.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking %s backend: %w", backend.Kind(), err)
	}
	if !exists {
		s := NewStore(backend, opts)
		s.log.Info().Str("backend", backend.Kind()).Str("location", backend.Location()).Msg("starting empty graph")
		return s, nil
	}
	g, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading graph: %w", err)
	}
	s := newStore(g, backend, opts)
	s.metrics.GraphSize(len(g.Nodes), len(g.Edges))
	s.log.Info().
		Str("backend", backend.Kind()).
		Int("nodes", len(g.Nodes)).
		Int("edges", len(g.Edges)).
		Int("decks", g.TotalDecks).
		Msg("graph loaded")
	return s, nil
}

// AddDeck folds one deck into the graph.
//
// Card counts are aggregated over the counted partitions; every unordered
// pair of distinct cards gains 1 on CountSet and min(count_a, count_b) on
// CountMultiset. A non-empty deck ID that was already ingested is reported
// as a duplicate and leaves the graph untouched.
func (s *Store) AddDeck(d deck.Deck) AddResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(d.ID)
	if id != "" {
		if _, seen := s.g.DeckIDs[id]; seen {
			return AddResult{Duplicate: true}
		}
	}

	counts := d.Counted(s.exclude)
	if len(counts) == 0 {
		return AddResult{Empty: true}
	}

	// Millisecond UTC timestamps survive every backend unchanged.
	now := s.now().UTC().Truncate(time.Millisecond)
	ts := d.Timestamp.UTC().Truncate(time.Millisecond)
	if d.Timestamp.IsZero() {
		ts = now
	}
	game := strings.ToLower(strings.TrimSpace(d.Game))

	res := AddResult{Cards: len(counts)}
	names := deck.SortedNames(counts)
	for _, name := range names {
		n, ok := s.g.Nodes[name]
		if !ok {
			s.g.Nodes[name] = &Node{Name: name, Game: game, Decks: 1, FirstSeen: ts, LastSeen: ts}
			res.NewNodes++
			continue
		}
		n.Decks++
		if ts.Before(n.FirstSeen) {
			n.FirstSeen = ts
		}
		if ts.After(n.LastSeen) {
			n.LastSeen = ts
		}
		if n.Game == "" {
			n.Game = game
		}
	}

	for i := 0; i < len(names); i++ {
		ca := counts[names[i]]
		for j := i + 1; j < len(names); j++ {
			cb := counts[names[j]]
			if s.g.addPair(names[i], names[j], 1, min(ca, cb)) {
				res.NewEdges++
			}
			res.Pairs++
		}
	}

	if id != "" {
		s.g.DeckIDs[id] = struct{}{}
	}
	s.g.TotalDecks++
	s.g.LastUpdate = now
	s.metrics.GraphSize(len(s.g.Nodes), len(s.g.Edges))
	return res
}

// Ingest reads deck JSONL from r and adds every valid record, recording
// each outcome in report. It returns early only on I/O failure or context
// cancellation.
func (s *Store) Ingest(ctx context.Context, r io.Reader, report *deck.Report) error {
	err := deck.ReadAll(r, func(rec deck.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rec.Err != nil {
			s.log.Debug().Int("line", rec.Line).Err(rec.Err).Msg("skipping record")
			report.Add(rec.Line, deck.Skipped, rec.Err)
			s.metrics.DeckOutcome(deck.Skipped.String())
			return nil
		}

		res := s.AddDeck(rec.Deck)
		outcome := deck.Ingested
		var reason error
		switch {
		case res.Duplicate:
			outcome = deck.Duplicate
		case res.Empty:
			outcome = deck.Skipped
			reason = &deck.RecordError{Reason: deck.ReasonNoCards, Detail: rec.Deck.ID}
		}
		report.Add(rec.Line, outcome, reason)
		s.metrics.DeckOutcome(outcome.String())
		return nil
	})
	report.Finish()
	if err != nil {
		return fmt.Errorf("ingesting decks: %w", err)
	}
	s.log.Info().
		Str("run_id", report.RunID).
		Int("read", report.Read).
		Int("ingested", report.Ingested).
		Int("duplicate", report.Duplicate).
		Int("skipped", report.Skipped).
		Msg("ingestion finished")
	return nil
}

// Save persists the graph to the store's backend.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return fmt.Errorf("save: %w", ErrNoBackend)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.backend.Save(ctx, s.g); err != nil {
		return fmt.Errorf("saving graph to %s: %w", s.backend.Kind(), err)
	}
	return nil
}

// Neighbors returns the sorted co-occurring cards of name; empty for
// unknown cards.
func (s *Store) Neighbors(name string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Neighbors(name)
}

// NeighborSet returns a copy of the adjacency set of name.
func (s *Store) NeighborSet(name string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.g.NeighborSet(name)
	out := make(map[string]struct{}, len(src))
	for n := range src {
		out[n] = struct{}{}
	}
	return out
}

// Edge returns the counts for a pair in either order.
func (s *Store) Edge(a, b string) (Edge, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Edge(a, b)
}

func (s *Store) Degree(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Degree(name)
}

func (s *Store) Node(name string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.g.Nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// HasCard reports whether name is a node of the graph.
func (s *Store) HasCard(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.g.Nodes[name]
	return ok
}

func (s *Store) NodeNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.NodeNames()
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() *Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.g.Clone()
}

// Counts returns node count, edge count and total decks processed.
func (s *Store) Counts() (nodes, edges, decks int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.g.Nodes), len(s.g.Edges), s.g.TotalDecks
}
