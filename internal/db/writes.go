package db

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplaceGraph overwrites nodes, edges, deck IDs and meta in one
// transaction. Embeddings are left untouched.
func (d *DB) ReplaceGraph(ctx context.Context, g GraphRows) (err error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	for _, table := range []string{"edges", "nodes", "decks", "meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clearing %s: %w", table, err)
		}
	}

	if err = insertNodes(ctx, tx, g.Nodes); err != nil {
		return err
	}
	if err = insertEdges(ctx, tx, g.Edges); err != nil {
		return err
	}

	deckStmt, err := tx.PrepareContext(ctx, "INSERT INTO decks (id) VALUES (?)")
	if err != nil {
		return fmt.Errorf("preparing deck insert: %w", err)
	}
	defer deckStmt.Close()
	for _, id := range g.DeckIDs {
		if _, err = deckStmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("inserting deck %q: %w", id, err)
		}
	}

	for k, v := range g.Meta {
		if _, err = tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("writing meta %q: %w", k, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("committing graph: %w", err)
	}
	return nil
}

func insertNodes(ctx context.Context, tx *sql.Tx, nodes []Node) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (name, game, decks, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing node insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range nodes {
		if _, err := stmt.ExecContext(ctx, n.Name, n.Game, n.Decks, n.FirstSeen, n.LastSeen); err != nil {
			return fmt.Errorf("inserting node %q: %w", n.Name, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, edges []Edge) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (card1, card2, count_set, count_multiset)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing edge insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		if _, err := stmt.ExecContext(ctx, e.Card1, e.Card2, e.CountSet, e.CountMultiset); err != nil {
			return fmt.Errorf("inserting edge %q-%q: %w", e.Card1, e.Card2, err)
		}
	}
	return nil
}

// LoadGraph reads the complete persisted graph.
func (d *DB) LoadGraph(ctx context.Context) (GraphRows, error) {
	var g GraphRows
	var err error
	if g.Nodes, err = d.AllNodes(ctx); err != nil {
		return g, fmt.Errorf("loading nodes: %w", err)
	}
	if g.Edges, err = d.AllEdges(ctx); err != nil {
		return g, fmt.Errorf("loading edges: %w", err)
	}
	if g.DeckIDs, err = d.DeckIDs(ctx); err != nil {
		return g, fmt.Errorf("loading deck ids: %w", err)
	}
	if g.Meta, err = d.Meta(ctx); err != nil {
		return g, fmt.Errorf("loading meta: %w", err)
	}
	return g, nil
}

// ClearGraph removes the graph tables' contents.
func (d *DB) ClearGraph(ctx context.Context) error {
	return d.ReplaceGraph(ctx, GraphRows{})
}
