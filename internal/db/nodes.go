package db

import "context"

// scanNode scans a row into a Node. The row must have all 5 columns in standard order.
func scanNode(scanner interface{ Scan(dest ...any) error }) (Node, error) {
	var n Node
	err := scanner.Scan(&n.Name, &n.Game, &n.Decks, &n.FirstSeen, &n.LastSeen)
	return n, err
}

// AllNodes returns all nodes ordered by name
func (d *DB) AllNodes(ctx context.Context) ([]Node, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT name, game, decks, first_seen, last_seen
		FROM nodes ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// CountNodes returns the number of rows in the nodes table.
func (d *DB) CountNodes(ctx context.Context) (int, error) {
	var count int
	err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&count)
	return count, err
}
