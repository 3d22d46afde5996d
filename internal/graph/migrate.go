package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"decksage/simgraph/internal/logging"
)

// maxReportedDiffs bounds MismatchError.Differences.
const maxReportedDiffs = 20

// MigrateOptions controls Migrate.
type MigrateOptions struct {
	// DeleteSource removes the source after the copy verifies.
	DeleteSource bool
}

// MigrateResult summarises a verified migration.
type MigrateResult struct {
	Nodes         int
	Edges         int
	Decks         int
	SourceDeleted bool
}

// MismatchError reports a destination that does not match its source after
// a migration. The source is never deleted when this is returned.
type MismatchError struct {
	SourceNodes, SourceEdges int
	DestNodes, DestEdges     int
	Differences              []string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("migration verification failed: source %d nodes/%d edges, destination %d nodes/%d edges",
		e.SourceNodes, e.SourceEdges, e.DestNodes, e.DestEdges)
	if len(e.Differences) > 0 {
		msg += ": " + strings.Join(e.Differences, "; ")
	}
	return msg
}

// Migrate copies the graph in from to to, reloads the destination and
// verifies that node count, edge count, deck IDs and every edge's counts
// match. The source is removed only when opts.DeleteSource is set and
// verification passed.
func Migrate(ctx context.Context, from, to Backend, opts MigrateOptions) (*MigrateResult, error) {
	log := logging.Component("migrate")

	if from.Kind() == to.Kind() && from.Location() == to.Location() {
		return nil, fmt.Errorf("source and destination are the same %s backend at %s", from.Kind(), from.Location())
	}

	exists, err := from.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking source: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("source %s %s: %w", from.Kind(), from.Location(), ErrNoGraph)
	}

	src, err := from.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading source: %w", err)
	}
	log.Info().
		Str("from", from.Kind()).Str("to", to.Kind()).
		Int("nodes", len(src.Nodes)).Int("edges", len(src.Edges)).
		Msg("migrating graph")

	if err := to.Save(ctx, src); err != nil {
		return nil, fmt.Errorf("writing destination: %w", err)
	}
	// Row counts catch a short write before paying for a full reload.
	if sz, ok := asSizer(to); ok {
		nodes, edges, err := sz.Size(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting destination: %w", err)
		}
		if nodes != len(src.Nodes) || edges != len(src.Edges) {
			mismatch := &MismatchError{
				SourceNodes: len(src.Nodes), SourceEdges: len(src.Edges),
				DestNodes: nodes, DestEdges: edges,
				Differences: []string{"stored row counts differ"},
			}
			log.Error().Err(mismatch).Msg("destination does not match source; source kept")
			return nil, mismatch
		}
	}
	dst, err := to.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("reloading destination: %w", err)
	}

	if diffs := Compare(src, dst, maxReportedDiffs); len(diffs) > 0 {
		mismatch := &MismatchError{
			SourceNodes: len(src.Nodes), SourceEdges: len(src.Edges),
			DestNodes: len(dst.Nodes), DestEdges: len(dst.Edges),
			Differences: diffs,
		}
		log.Error().Err(mismatch).Msg("destination does not match source; source kept")
		return nil, mismatch
	}

	res := &MigrateResult{Nodes: len(src.Nodes), Edges: len(src.Edges), Decks: src.TotalDecks}
	if opts.DeleteSource {
		if err := from.Remove(ctx); err != nil {
			return res, fmt.Errorf("migration verified but removing source failed: %w", err)
		}
		res.SourceDeleted = true
		log.Info().Str("backend", from.Kind()).Str("location", from.Location()).Msg("source removed")
	}
	return res, nil
}

// Compare lists logical differences between two graphs, up to limit
// entries. Timestamps are not compared.
func Compare(a, b *Graph, limit int) []string {
	var diffs []string
	add := func(format string, args ...any) bool {
		diffs = append(diffs, fmt.Sprintf(format, args...))
		return len(diffs) >= limit
	}

	if len(a.Nodes) != len(b.Nodes) {
		if add("node count %d != %d", len(a.Nodes), len(b.Nodes)) {
			return diffs
		}
	}
	if len(a.Edges) != len(b.Edges) {
		if add("edge count %d != %d", len(a.Edges), len(b.Edges)) {
			return diffs
		}
	}
	if a.TotalDecks != b.TotalDecks {
		if add("total decks %d != %d", a.TotalDecks, b.TotalDecks) {
			return diffs
		}
	}
	if len(a.DeckIDs) != len(b.DeckIDs) {
		if add("deck id count %d != %d", len(a.DeckIDs), len(b.DeckIDs)) {
			return diffs
		}
	}
	for _, name := range a.NodeNames() {
		bn, ok := b.Nodes[name]
		if !ok {
			if add("node %q missing", name) {
				return diffs
			}
			continue
		}
		if an := a.Nodes[name]; an.Decks != bn.Decks || an.Game != bn.Game {
			if add("node %q differs", name) {
				return diffs
			}
		}
	}
	for _, k := range a.EdgeKeys() {
		ae := a.Edges[k]
		be, ok := b.Edges[k]
		switch {
		case !ok:
			if add("edge %s missing", k) {
				return diffs
			}
		case ae.CountSet != be.CountSet || ae.CountMultiset != be.CountMultiset:
			if add("edge %s counts (%d,%d) != (%d,%d)", k, ae.CountSet, ae.CountMultiset, be.CountSet, be.CountMultiset) {
				return diffs
			}
		}
	}
	return diffs
}

// IsMismatch reports whether err is a migration verification failure.
func IsMismatch(err error) bool {
	var m *MismatchError
	return errors.As(err, &m)
}
