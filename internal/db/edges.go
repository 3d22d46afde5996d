package db

import "context"

// scanEdge scans a row into an Edge. The row must have all 4 columns in standard order.
func scanEdge(scanner interface{ Scan(dest ...any) error }) (Edge, error) {
	var e Edge
	err := scanner.Scan(&e.Card1, &e.Card2, &e.CountSet, &e.CountMultiset)
	return e, err
}

func (d *DB) queryEdges(ctx context.Context, query string, args ...any) ([]Edge, error) {
	rows, err := d.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []Edge
	for rows.Next() {
		e, err := scanEdge(rows)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AllEdges returns all edges ordered by key
func (d *DB) AllEdges(ctx context.Context) ([]Edge, error) {
	return d.queryEdges(ctx, `
		SELECT card1, card2, count_set, count_multiset
		FROM edges ORDER BY card1, card2
	`)
}

// CountEdges returns the number of rows in the edges table.
func (d *DB) CountEdges(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM edges").Scan(&count)
	return count, err
}
